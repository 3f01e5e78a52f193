package calendarapi

import (
	"context"
	"errors"
	"fmt"

	"calendar-time-tracking/aggregate"

	"github.com/golang-module/carbon"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

// ErrUnknownCalendar is returned for calendar ids that are not in the user's calendar list.
var ErrUnknownCalendar = errors.New("unknown calendar")

// DefaultColor is used for calendars without a background color.
const DefaultColor = "#000000"

type Client struct {
	Config         Config
	CalendarClient *calendar.Service
	Logger         *zap.Logger
}

type Config struct {
	// TimeZone decides where "today" starts; only events ending before it are fetched.
	TimeZone string `default:"UTC"`
}

// CalendarInfo describes one calendar of the user's calendar list.
type CalendarInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	info := CalendarInfo{ID: entry.Id, Name: entry.Summary, Color: entry.BackgroundColor}
	if info.Color == "" {
		info.Color = DefaultColor
	}
	return info
}

// ListCalendars returns every calendar in the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) (calendars []CalendarInfo, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("list calendars: %w", err)
		}
	}()
	err = c.CalendarClient.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, entry := range page.Items {
			calendars = append(calendars, toCalendarInfo(entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("listed calendars", zap.Int("count", len(calendars)))
	return calendars, nil
}

// FetchEvents returns the calendar's name and color together with all of its
// events that ended before the start of today. Recurring events are expanded
// into their instances.
func (c *Client) FetchEvents(ctx context.Context, calendarID string) (_ CalendarInfo, _ []aggregate.Event, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("fetch events from calendar %s: %w", calendarID, err)
		}
	}()
	entry, err := c.CalendarClient.CalendarList.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return CalendarInfo{}, nil, err
	}
	info := toCalendarInfo(entry)

	timeMax := carbon.SetTimezone(c.timeZone()).Now().StartOfDay().ToRfc3339String()
	var events []aggregate.Event
	pages := 0
	err = c.CalendarClient.Events.List(calendarID).
		TimeMax(timeMax).
		SingleEvents(true).
		TimeZone("UTC").
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			pages++
			for _, item := range page.Items {
				events = append(events, toEvent(item))
			}
			return nil
		})
	if err != nil {
		return CalendarInfo{}, nil, err
	}
	c.Logger.Info("fetched events",
		zap.String("calendar", info.Name),
		zap.Int("events", len(events)),
		zap.Int("pages", pages),
		zap.String("timeMax", timeMax),
	)
	return info, events, nil
}

func (c *Client) timeZone() string {
	if c.Config.TimeZone == "" {
		return "UTC"
	}
	return c.Config.TimeZone
}

func toEvent(item *calendar.Event) aggregate.Event {
	return aggregate.Event{
		Start: eventTime(item.Start),
		End:   eventTime(item.End),
	}
}

// eventTime prefers the date-time and falls back to the date of all-day events.
func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
