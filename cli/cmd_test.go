package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"calendar-time-tracking/aggregate"
	"calendar-time-tracking/api/calendarapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	calls []string
	err   error
}

func (f *fakeTracker) Calendars(context.Context) ([]calendarapi.CalendarInfo, error) {
	f.calls = append(f.calls, "calendars")
	return []calendarapi.CalendarInfo{{ID: "work", Name: "Work", Color: "#ff0000"}}, f.err
}

func (f *fakeTracker) Serve(context.Context) error {
	f.calls = append(f.calls, "serve")
	return f.err
}

func (f *fakeTracker) Report(_ context.Context, w io.Writer, calendarRef string, g aggregate.Granularity, asJSON bool) error {
	f.calls = append(f.calls, fmt.Sprintf("report %s %s %t", calendarRef, g, asJSON))
	return f.err
}

func (f *fakeTracker) Export(_ context.Context, calendarRef string, g aggregate.Granularity) error {
	f.calls = append(f.calls, fmt.Sprintf("export %s %s", calendarRef, g))
	return f.err
}

// executeCmd runs the root command against tracker and captures its output.
func executeCmd(t *testing.T, tracker *fakeTracker, args ...string) (out string, opened int, err error) {
	t.Helper()
	closed := 0
	open := func(context.Context) (Tracker, func(), error) {
		opened++
		return tracker, func() { closed++ }, nil
	}
	root := NewRootCmd(open)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	assert.Equal(t, opened, closed)
	return buf.String(), opened, err
}

func TestRootCmd_ServesByDefault(t *testing.T) {
	tracker := &fakeTracker{}

	_, opened, err := executeCmd(t, tracker)

	require.NoError(t, err)
	assert.Equal(t, 1, opened)
	assert.Equal(t, []string{"serve"}, tracker.calls)
}

func TestServeCmd_PropagatesError(t *testing.T) {
	tracker := &fakeTracker{err: errors.New("address in use")}

	_, _, err := executeCmd(t, tracker, "serve")

	assert.EqualError(t, err, "address in use")
}

func TestReportCmd(t *testing.T) {
	tracker := &fakeTracker{}

	_, _, err := executeCmd(t, tracker, "report", "--calendar", "Work", "--granularity", "month", "--json")

	require.NoError(t, err)
	assert.Equal(t, []string{"report Work Month true"}, tracker.calls)
}

func TestReportCmd_DefaultsToWeek(t *testing.T) {
	tracker := &fakeTracker{}

	_, _, err := executeCmd(t, tracker, "report", "-c", "work")

	require.NoError(t, err)
	assert.Equal(t, []string{"report work Week false"}, tracker.calls)
}

func TestReportCmd_InvalidGranularityDoesNotOpen(t *testing.T) {
	tracker := &fakeTracker{}

	_, opened, err := executeCmd(t, tracker, "report", "-c", "work", "-g", "year")

	assert.ErrorContains(t, err, "unknown granularity")
	assert.Zero(t, opened)
}

func TestReportCmd_RequiresCalendar(t *testing.T) {
	_, opened, err := executeCmd(t, &fakeTracker{}, "report")

	assert.ErrorContains(t, err, "calendar")
	assert.Zero(t, opened)
}

func TestExportCmd(t *testing.T) {
	tracker := &fakeTracker{}

	out, _, err := executeCmd(t, tracker, "export", "-c", "Work")

	require.NoError(t, err)
	assert.Equal(t, []string{"export Work Month"}, tracker.calls)
	assert.Contains(t, out, "Exported Month totals of Work.")
}

func TestCalendarsCmd(t *testing.T) {
	out, _, err := executeCmd(t, &fakeTracker{}, "calendars")

	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Regexp(t, `work\s+Work\s+#ff0000`, out)
}

func TestUnknownCommand(t *testing.T) {
	_, opened, err := executeCmd(t, &fakeTracker{}, "frobnicate")

	assert.ErrorContains(t, err, "unknown command")
	assert.Zero(t, opened)
}
