package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"calendar-time-tracking/aggregate"
	"calendar-time-tracking/api/calendarapi"
	"calendar-time-tracking/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Fake tracker implementing the interface the handlers depend on.
type fakeTracker struct {
	calendars   []calendarapi.CalendarInfo
	summariesFn func(calendarID string, g aggregate.Granularity) (calendarapi.CalendarInfo, []aggregate.PeriodSummary, error)
	calendarErr error

	lastCalendar    string
	lastGranularity aggregate.Granularity
}

func (f *fakeTracker) Calendars(ctx context.Context) ([]calendarapi.CalendarInfo, error) {
	return f.calendars, f.calendarErr
}

func (f *fakeTracker) Summaries(ctx context.Context, calendarID string, g aggregate.Granularity) (calendarapi.CalendarInfo, []aggregate.PeriodSummary, error) {
	f.lastCalendar = calendarID
	f.lastGranularity = g
	if f.summariesFn != nil {
		return f.summariesFn(calendarID, g)
	}
	return calendarapi.CalendarInfo{}, nil, nil
}

func setupApp(t *testing.T, tracker server.Tracker) *fiber.App {
	t.Helper()
	return server.New(server.NewHandler(tracker, zap.NewNop()))
}

func get(t *testing.T, app *fiber.App, target string) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

var workCalendar = calendarapi.CalendarInfo{ID: "work", Name: "Work", Color: "#ff0000"}

func withSummaries(summaries ...aggregate.PeriodSummary) *fakeTracker {
	return &fakeTracker{
		calendars: []calendarapi.CalendarInfo{workCalendar, {ID: "gym", Name: "Gym", Color: "#000000"}},
		summariesFn: func(calendarID string, g aggregate.Granularity) (calendarapi.CalendarInfo, []aggregate.PeriodSummary, error) {
			if calendarID != workCalendar.ID && calendarID != "gym" {
				return calendarapi.CalendarInfo{}, nil, fmt.Errorf("summaries for %s: %w", calendarID, calendarapi.ErrUnknownCalendar)
			}
			return workCalendar, summaries, nil
		},
	}
}

func TestGetSummaries_Success(t *testing.T) {
	tracker := withSummaries(aggregate.PeriodSummary{
		Label: "March", TotalHours: 4, TotalMinutes: 240,
		BucketStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	app := setupApp(t, tracker)

	resp, body := get(t, app, "/api/summaries?calendar=work&granularity=month")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "work", tracker.lastCalendar)
	assert.Equal(t, aggregate.Month, tracker.lastGranularity)

	var got server.SummariesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "Month", got.Granularity)
	assert.Equal(t, workCalendar, got.Calendar)
	require.Len(t, got.Summaries, 1)
	assert.Equal(t, "March", got.Summaries[0].Label)
	assert.Equal(t, 4.0, got.Summaries[0].TotalHours)
	assert.Equal(t, 240.0, got.Summaries[0].TotalMinutes)
}

func TestGetSummaries_EmptyIsList(t *testing.T) {
	app := setupApp(t, withSummaries())

	resp, body := get(t, app, "/api/summaries?calendar=work")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"summaries":[]`)
	assert.Contains(t, body, `"granularity":"Week"`)
}

func TestGetSummaries_BadRequests(t *testing.T) {
	app := setupApp(t, withSummaries())

	resp, body := get(t, app, "/api/summaries")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "calendar is required")

	resp, body = get(t, app, "/api/summaries?calendar=work&granularity=year")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "unknown granularity")
}

func TestGetSummaries_UnknownCalendar(t *testing.T) {
	app := setupApp(t, withSummaries())

	resp, body := get(t, app, "/api/summaries?calendar=nope")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "unknown_calendar")
}

func TestGetSummaries_InternalError(t *testing.T) {
	tracker := &fakeTracker{
		summariesFn: func(string, aggregate.Granularity) (calendarapi.CalendarInfo, []aggregate.PeriodSummary, error) {
			return calendarapi.CalendarInfo{}, nil, errors.New("quota exceeded")
		},
	}
	app := setupApp(t, tracker)

	resp, body := get(t, app, "/api/summaries?calendar=work")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body, "quota exceeded")
}

func TestListCalendars(t *testing.T) {
	app := setupApp(t, withSummaries())

	resp, body := get(t, app, "/api/calendars")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got server.CalendarsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got.Calendars, 2)
	assert.Equal(t, workCalendar, got.Calendars[0])
}

func TestChart_RendersBars(t *testing.T) {
	app := setupApp(t, withSummaries(aggregate.PeriodSummary{
		Label: "2024-W06", TotalHours: 2, TotalMinutes: 120,
		BucketStart: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
	}))

	resp, body := get(t, app, "/chart?calendar=work&granularity=Week")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Total Time Spent Per Week - Work")
	assert.Contains(t, body, "2024-W06")
}

func TestChart_NoDataShowsWarning(t *testing.T) {
	app := setupApp(t, withSummaries())

	resp, body := get(t, app, "/chart?calendar=work")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No past events found for this calendar.")
}

func TestIndex_DefaultsToFirstCalendarAndWeek(t *testing.T) {
	app := setupApp(t, withSummaries())

	resp, body := get(t, app, "/")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Time-blocking Tracking")
	assert.Contains(t, body, `<option value="work" selected>Work</option>`)
	assert.Contains(t, body, `<option value="Week" selected>Week</option>`)
	assert.Contains(t, body, "/chart?calendar=work&amp;granularity=Week")
}

func TestIndex_KeepsSelection(t *testing.T) {
	app := setupApp(t, withSummaries())

	_, body := get(t, app, "/?calendar=gym&granularity=month")

	assert.Contains(t, body, `<option value="gym" selected>Gym</option>`)
	assert.Contains(t, body, `<option value="Month" selected>Month</option>`)
}

func TestIndex_CalendarListError(t *testing.T) {
	app := setupApp(t, &fakeTracker{calendarErr: errors.New("offline")})

	resp, _ := get(t, app, "/")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
