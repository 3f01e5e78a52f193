package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"calendar-time-tracking/aggregate"
	"calendar-time-tracking/api/calendarapi"
	"calendar-time-tracking/api/notionapi"
	"calendar-time-tracking/cache"
	"calendar-time-tracking/chart"
	"calendar-time-tracking/server"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type EventSource interface {
	ListCalendars(ctx context.Context) ([]calendarapi.CalendarInfo, error)
	FetchEvents(ctx context.Context, calendarID string) (calendarapi.CalendarInfo, []aggregate.Event, error)
}

type SummaryExporter interface {
	EnsureDatabase(ctx context.Context) (string, error)
	PutSummaries(ctx context.Context, title string, rows []notionapi.Row) error
}

type calendarEvents struct {
	Info   calendarapi.CalendarInfo
	Events []aggregate.Event
}

// Caches holds what was fetched from the Calendar API during this session.
type Caches struct {
	Calendars *cache.Store[[]calendarapi.CalendarInfo]
	Events    *cache.Store[calendarEvents]
}

func InitCaches(config *Config) *Caches {
	return &Caches{
		Calendars: cache.New[[]calendarapi.CalendarInfo](config.Cache.TTL),
		Events:    cache.New[calendarEvents](config.Cache.TTL),
	}
}

type App struct {
	Source   EventSource
	Exporter SummaryExporter
	Caches   *Caches
	Config   *Config
	Logger   *zap.Logger
}

const calendarListKey = "calendars"

func (a *App) Calendars(ctx context.Context) ([]calendarapi.CalendarInfo, error) {
	return a.Caches.Calendars.GetOrLoad(calendarListKey, func() ([]calendarapi.CalendarInfo, error) {
		return a.Source.ListCalendars(ctx)
	})
}

// findCalendar looks a calendar up by ID, then by case-insensitive name.
func (a *App) findCalendar(ctx context.Context, ref string, byName bool) (calendarapi.CalendarInfo, error) {
	calendars, err := a.Calendars(ctx)
	if err != nil {
		return calendarapi.CalendarInfo{}, err
	}
	for _, c := range calendars {
		if c.ID == ref {
			return c, nil
		}
	}
	if byName {
		for _, c := range calendars {
			if strings.EqualFold(c.Name, ref) {
				return c, nil
			}
		}
	}
	return calendarapi.CalendarInfo{}, fmt.Errorf("calendar %q: %w", ref, calendarapi.ErrUnknownCalendar)
}

// Summaries aggregates the past events of one calendar.
func (a *App) Summaries(
	ctx context.Context,
	calendarID string,
	g aggregate.Granularity,
) (_ calendarapi.CalendarInfo, _ []aggregate.PeriodSummary, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("summaries for %s: %w", calendarID, err)
		}
	}()
	if _, err := a.findCalendar(ctx, calendarID, false); err != nil {
		return calendarapi.CalendarInfo{}, nil, err
	}
	fetched, err := a.Caches.Events.GetOrLoad(calendarID, func() (calendarEvents, error) {
		info, events, err := a.Source.FetchEvents(ctx, calendarID)
		return calendarEvents{Info: info, Events: events}, err
	})
	if err != nil {
		return calendarapi.CalendarInfo{}, nil, err
	}
	spans, dropped := aggregate.Parse(fetched.Events)
	if dropped > 0 {
		a.Logger.Warn("skipped events without a parseable start or end",
			zap.String("calendar", calendarID), zap.Int("dropped", dropped))
	}
	if negative := countNegative(spans); negative > 0 {
		a.Logger.Warn("events ending before they start",
			zap.String("calendar", calendarID), zap.Int("count", negative))
	}
	summaries := aggregate.AggregateSpans(spans, g)
	a.Logger.Debug("aggregated",
		zap.String("calendar", calendarID),
		zap.Stringer("granularity", g),
		zap.Int("events", len(fetched.Events)),
		zap.Int("periods", len(summaries)),
	)
	return fetched.Info, summaries, nil
}

func countNegative(spans []aggregate.Span) int {
	n := 0
	for _, s := range spans {
		if s.Hours() < 0 {
			n++
		}
	}
	return n
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := server.New(server.NewHandler(a, a.Logger))
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(a.Config.Server.Addr)
	}()
	a.Logger.Info("running", zap.String("addr", a.Config.Server.Addr))
	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	defer a.Logger.Info("stopped")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Report writes the summaries of one calendar, given by ID or name, as a
// table or as JSON.
func (a *App) Report(ctx context.Context, w io.Writer, calendarRef string, g aggregate.Granularity, asJSON bool) error {
	info, err := a.findCalendar(ctx, calendarRef, true)
	if err != nil {
		return err
	}
	info, summaries, err := a.Summaries(ctx, info.ID, g)
	if err != nil {
		return err
	}
	if asJSON {
		if summaries == nil {
			summaries = []aggregate.PeriodSummary{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(server.SummariesResponse{
			Calendar:    info,
			Granularity: g.String(),
			Summaries:   summaries,
		})
	}
	fmt.Fprintln(w, chart.Title(chart.Input{CalendarName: info.Name, Granularity: g}))
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No past events found for this calendar.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tSTART\tHOURS\tMINUTES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.0f\n", s.Label, s.BucketStart.Format("2006-01-02"), s.TotalHours, s.TotalMinutes)
	}
	return tw.Flush()
}

// Export writes the summaries of one calendar to the Notion database.
func (a *App) Export(ctx context.Context, calendarRef string, g aggregate.Granularity) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("export %s: %w", calendarRef, err)
		}
	}()
	info, err := a.findCalendar(ctx, calendarRef, true)
	if err != nil {
		return err
	}
	info, summaries, err := a.Summaries(ctx, info.ID, g)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		a.Logger.Info("nothing to export", zap.String("calendar", info.Name))
		return nil
	}
	title, err := a.Exporter.EnsureDatabase(ctx)
	if err != nil {
		return err
	}
	rows := make([]notionapi.Row, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, notionapi.Row{Calendar: info.Name, Granularity: g, Summary: s})
	}
	if err := a.Exporter.PutSummaries(ctx, title, rows); err != nil {
		return err
	}
	a.Logger.Info("exported", zap.String("calendar", info.Name), zap.Int("rows", len(rows)))
	return nil
}
