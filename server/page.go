package server

import (
	"html/template"

	"calendar-time-tracking/api/calendarapi"
)

const pageTitle = "Time-blocking Tracking"

type indexPage struct {
	Title         string
	Calendars     []calendarapi.CalendarInfo
	Selected      string
	Granularities []string
	Granularity   string
	ChartURL      string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
form { margin-bottom: 1em; }
label { margin-right: 1em; }
iframe { border: none; width: 960px; height: 560px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Calendars}}
<form method="get" action="/">
<label>Select a calendar
<select name="calendar" onchange="this.form.submit()">
{{range .Calendars}}<option value="{{.ID}}"{{if eq .ID $.Selected}} selected{{end}}>{{.Name}}</option>
{{end}}</select>
</label>
<label>Select granularity
<select name="granularity" onchange="this.form.submit()">
{{range .Granularities}}<option value="{{.}}"{{if eq . $.Granularity}} selected{{end}}>{{.}}</option>
{{end}}</select>
</label>
<noscript><button type="submit">Show</button></noscript>
</form>
<iframe src="{{.ChartURL}}" title="chart"></iframe>
{{else}}
<p>No calendars found.</p>
{{end}}
</body>
</html>
`))

var warningTemplate = template.Must(template.New("warning").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.}}</title></head>
<body style="font-family: sans-serif">
<p style="background: #fffbe6; border: 1px solid #ffe58f; padding: 1em">{{.}}</p>
</body>
</html>
`))
