package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"calendar-time-tracking/aggregate"
	"calendar-time-tracking/api/calendarapi"
	"calendar-time-tracking/chart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const noDataWarning = "No past events found for this calendar."

// Tracker is what the handlers need from the application.
type Tracker interface {
	Calendars(ctx context.Context) ([]calendarapi.CalendarInfo, error)
	Summaries(ctx context.Context, calendarID string, g aggregate.Granularity) (calendarapi.CalendarInfo, []aggregate.PeriodSummary, error)
}

type Handler struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewHandler(tracker Tracker, logger *zap.Logger) *Handler {
	return &Handler{tracker: tracker, logger: logger}
}

// New returns a fiber app with every route registered.
func New(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               pageTitle,
	})
	h.Register(app)
	return app
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.Index)
	app.Get("/chart", h.Chart)
	app.Get("/api/calendars", h.ListCalendars)
	app.Get("/api/summaries", h.GetSummaries)
}

// Index renders the calendar and granularity selectors with the chart of
// the current selection.
func (h *Handler) Index(c *fiber.Ctx) error {
	calendars, err := h.tracker.Calendars(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	g, err := granularityParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	page := indexPage{
		Title:       pageTitle,
		Calendars:   calendars,
		Selected:    c.Query("calendar"),
		Granularity: g.String(),
	}
	for _, option := range aggregate.Granularities {
		page.Granularities = append(page.Granularities, option.String())
	}
	if page.Selected == "" && len(calendars) > 0 {
		page.Selected = calendars[0].ID
	}
	page.ChartURL = "/chart?" + url.Values{
		"calendar":    {page.Selected},
		"granularity": {page.Granularity},
	}.Encode()

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return h.fail(c, err)
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}

// Chart renders the bar chart of one calendar, or a warning when the
// calendar has no past events.
func (h *Handler) Chart(c *fiber.Ctx) error {
	calendarID, g, err := summaryParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	info, summaries, err := h.tracker.Summaries(c.UserContext(), calendarID, g)
	if err != nil {
		return h.fail(c, err)
	}
	var buf bytes.Buffer
	err = chart.Render(&buf, chart.Input{
		CalendarName: info.Name,
		Color:        info.Color,
		Granularity:  g,
		Summaries:    summaries,
	})
	if errors.Is(err, chart.ErrNoData) {
		buf.Reset()
		err = warningTemplate.Execute(&buf, noDataWarning)
	}
	if err != nil {
		return h.fail(c, err)
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}

func (h *Handler) ListCalendars(c *fiber.Ctx) error {
	calendars, err := h.tracker.Calendars(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	if calendars == nil {
		calendars = []calendarapi.CalendarInfo{}
	}
	return c.Status(http.StatusOK).JSON(CalendarsResponse{Calendars: calendars})
}

func (h *Handler) GetSummaries(c *fiber.Ctx) error {
	calendarID, g, err := summaryParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	info, summaries, err := h.tracker.Summaries(c.UserContext(), calendarID, g)
	if err != nil {
		return h.fail(c, err)
	}
	if summaries == nil {
		summaries = []aggregate.PeriodSummary{}
	}
	return c.Status(http.StatusOK).JSON(SummariesResponse{
		Calendar:    info,
		Granularity: g.String(),
		Summaries:   summaries,
	})
}

func granularityParam(c *fiber.Ctx) (aggregate.Granularity, error) {
	raw := c.Query("granularity")
	if raw == "" {
		return aggregate.Week, nil
	}
	return aggregate.ParseGranularity(raw)
}

func summaryParams(c *fiber.Ctx) (string, aggregate.Granularity, error) {
	calendarID := strings.TrimSpace(c.Query("calendar"))
	if calendarID == "" {
		return "", 0, errors.New("calendar is required")
	}
	g, err := granularityParam(c)
	if err != nil {
		return "", 0, err
	}
	return calendarID, g, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: msg,
	})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, calendarapi.ErrUnknownCalendar) {
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Error:   "unknown_calendar",
			Message: err.Error(),
		})
	}
	h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Error: "internal_server_error",
	})
}
