package cli

import (
	"context"
	"io"

	"calendar-time-tracking/aggregate"
	"calendar-time-tracking/api/calendarapi"

	"github.com/spf13/cobra"
)

// Tracker is the application as seen by the commands.
type Tracker interface {
	Calendars(ctx context.Context) ([]calendarapi.CalendarInfo, error)
	Serve(ctx context.Context) error
	Report(ctx context.Context, w io.Writer, calendarRef string, g aggregate.Granularity, asJSON bool) error
	Export(ctx context.Context, calendarRef string, g aggregate.Granularity) error
}

// Opener builds the tracker on first use so that --help and flag errors never
// trigger authorization.
type Opener func(ctx context.Context) (Tracker, func(), error)

// NewRootCmd creates the top-level command. Without a subcommand it serves
// the chart UI.
func NewRootCmd(open Opener) *cobra.Command {
	serve := newServeCmd(open)
	root := &cobra.Command{
		Use:           "calendar-time-tracking",
		Short:         "Chart the time spent per calendar in Google Calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	root.AddCommand(
		serve,
		newReportCmd(open),
		newExportCmd(open),
		newCalendarsCmd(open),
	)

	return root
}

// withTracker opens the tracker for the duration of one command.
func withTracker(open Opener, run func(cmd *cobra.Command, t Tracker) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		t, cleanup, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		return run(cmd, t)
	}
}
