package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"calendar-time-tracking/aggregate"

	"github.com/spf13/cobra"
)

func newServeCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar selector and chart over HTTP",
		Args:  cobra.NoArgs,
		RunE: withTracker(open, func(cmd *cobra.Command, t Tracker) error {
			return t.Serve(cmd.Context())
		}),
	}
}

// selection holds the flags shared by report and export.
type selection struct {
	calendar    string
	granularity string
}

func (s *selection) register(cmd *cobra.Command, defaultGranularity string) {
	cmd.Flags().StringVarP(&s.calendar, "calendar", "c", "", "calendar ID or name")
	cmd.Flags().StringVarP(&s.granularity, "granularity", "g", defaultGranularity, "Week or Month")
	_ = cmd.MarkFlagRequired("calendar")
}

func (s *selection) parse() (aggregate.Granularity, error) {
	if s.calendar == "" {
		return 0, errors.New("--calendar must not be empty")
	}
	return aggregate.ParseGranularity(s.granularity)
}

func newReportCmd(open Opener) *cobra.Command {
	var (
		sel    selection
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the time spent per period for one calendar",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			_, err := sel.parse()
			return err
		},
		RunE: withTracker(open, func(cmd *cobra.Command, t Tracker) error {
			g, _ := sel.parse()
			return t.Report(cmd.Context(), cmd.OutOrStdout(), sel.calendar, g, asJSON)
		}),
	}
	sel.register(cmd, aggregate.Week.String())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newExportCmd(open Opener) *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the time spent per period for one calendar to Notion",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			_, err := sel.parse()
			return err
		},
		RunE: withTracker(open, func(cmd *cobra.Command, t Tracker) error {
			g, _ := sel.parse()
			if err := t.Export(cmd.Context(), sel.calendar, g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s totals of %s.\n", g, sel.calendar)
			return nil
		}),
	}
	sel.register(cmd, aggregate.Month.String())
	return cmd
}

func newCalendarsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of the account",
		Args:  cobra.NoArgs,
		RunE: withTracker(open, func(cmd *cobra.Command, t Tracker) error {
			calendars, err := t.Calendars(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
			for _, c := range calendars {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Color)
			}
			return tw.Flush()
		}),
	}
}
