// Package aggregate totals calendar event durations per week or month.
//
// Weeks are ISO weeks running Monday 00:00 UTC through Sunday and are labeled
// with their ISO year and week number, so every event of one ISO week lands
// in the same period. This differs from a Tuesday to Monday window labeled by
// its closing Monday: a Wednesday 2024-02-07 event is counted in 2024-W06 here,
// not in 2024-W07.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Granularity selects the size of the calendar period events are grouped into.
type Granularity int

const (
	Week Granularity = iota
	Month
)

// Granularities lists the selectable granularities in display order.
var Granularities = []Granularity{Week, Month}

func (g Granularity) String() string {
	switch g {
	case Week:
		return "Week"
	case Month:
		return "Month"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// ParseGranularity parses "week" or "month", ignoring case.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q (expected Week or Month)", s)
	}
}

// Event is a raw event as received from the calendar source. Start and End are
// either date-times or, for all-day events, plain dates.
type Event struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Span is an Event whose timestamps parsed successfully, normalized to UTC.
type Span struct {
	Start time.Time
	End   time.Time
}

// Duration may be negative when End precedes Start. It saturates for spans
// longer than about 292 years; use Hours for arithmetic.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Hours is the signed length of the span in hours.
func (s Span) Hours() float64 {
	secs := s.End.Unix() - s.Start.Unix()
	nanos := s.End.Nanosecond() - s.Start.Nanosecond()
	return float64(secs)/3600 + float64(nanos)/float64(time.Hour)
}

// PeriodSummary is the total time spent in one bucket.
type PeriodSummary struct {
	Label        string    `json:"period"`
	TotalHours   float64   `json:"total_hours"`
	TotalMinutes float64   `json:"total_minutes"`
	BucketStart  time.Time `json:"bucket_start"`
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 date-times, zone-less date-times (taken as
// UTC) and plain dates.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Parse converts events to spans, discarding any event whose start or end
// cannot be parsed. dropped reports how many were discarded.
func Parse(events []Event) (spans []Span, dropped int) {
	spans = make([]Span, 0, len(events))
	for _, e := range events {
		start, ok := parseTimestamp(e.Start)
		if !ok {
			dropped++
			continue
		}
		end, ok := parseTimestamp(e.End)
		if !ok {
			dropped++
			continue
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans, dropped
}

// BucketStart returns the start of the period containing t: Monday 00:00 UTC
// of its ISO week, or the first of its month.
func BucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if g == Month {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Label formats the label of the period starting at bucketStart.
func Label(bucketStart time.Time, g Granularity) string {
	if g == Month {
		return bucketStart.Month().String()
	}
	year, week := bucketStart.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Aggregate sums event durations per period. Events that fail to parse are
// skipped, periods without events are omitted and the result is ordered by
// period start.
func Aggregate(events []Event, g Granularity) []PeriodSummary {
	spans, _ := Parse(events)
	return AggregateSpans(spans, g)
}

// AggregateSpans is Aggregate for already parsed events.
func AggregateSpans(spans []Span, g Granularity) []PeriodSummary {
	totals := make(map[time.Time]float64)
	for _, s := range spans {
		totals[BucketStart(s.Start, g)] += s.Hours()
	}

	summaries := make([]PeriodSummary, 0, len(totals))
	for start, hours := range totals {
		summaries = append(summaries, PeriodSummary{
			Label:        Label(start, g),
			TotalHours:   hours,
			TotalMinutes: math.Round(hours * 60),
			BucketStart:  start,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].BucketStart.Before(summaries[j].BucketStart)
	})
	return summaries
}
