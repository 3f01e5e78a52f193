package server

import (
	"calendar-time-tracking/aggregate"
	"calendar-time-tracking/api/calendarapi"
)

type CalendarsResponse struct {
	Calendars []calendarapi.CalendarInfo `json:"calendars"`
}

type SummariesResponse struct {
	Calendar    calendarapi.CalendarInfo  `json:"calendar"`
	Granularity string                    `json:"granularity"`
	Summaries   []aggregate.PeriodSummary `json:"summaries"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
