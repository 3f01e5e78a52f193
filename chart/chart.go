package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	"calendar-time-tracking/aggregate"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no past events found for this calendar")

// Input is everything needed to draw one calendar's totals.
type Input struct {
	CalendarName string
	Color        string
	Granularity  aggregate.Granularity
	Summaries    []aggregate.PeriodSummary
}

func Title(in Input) string {
	return fmt.Sprintf("Total Time Spent Per %s - %s", in.Granularity, in.CalendarName)
}

// NewBar builds the bar chart for in. Bars are labeled with hours rounded to
// one decimal; hovering shows hours and minutes.
func NewBar(in Input) (*charts.Bar, error) {
	if len(in.Summaries) == 0 {
		return nil, ErrNoData
	}
	periods := make([]string, 0, len(in.Summaries))
	data := make([]opts.BarData, 0, len(in.Summaries))
	maxHours := 0.0
	for _, s := range in.Summaries {
		periods = append(periods, s.Label)
		maxHours = math.Max(maxHours, s.TotalHours)
		data = append(data, opts.BarData{
			Name:  s.Label,
			Value: math.Round(s.TotalHours*100) / 100,
			Label: &opts.Label{
				Show:      opts.Bool(true),
				Position:  "top",
				Formatter: types.FuncStr(fmt.Sprintf("%.1f", s.TotalHours)),
			},
			Tooltip: &opts.Tooltip{
				Formatter: types.FuncStr(HoverText(s)),
			},
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: Title(in)}),
		charts.WithTitleOpts(opts.Title{Title: Title(in)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{Name: in.Granularity.String()}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Total Hours", Min: 0, Max: yAxisMax(maxHours)}),
	)
	bar.SetXAxis(periods).AddSeries("Total Hours", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: in.Color}),
	)
	return bar, nil
}

// Render writes a standalone HTML page with the chart.
func Render(w io.Writer, in Input) error {
	bar, err := NewBar(in)
	if err != nil {
		return err
	}
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// HoverText is the tooltip shown for one period.
func HoverText(s aggregate.PeriodSummary) string {
	return fmt.Sprintf("%.2f hours<br/>%.0f minutes", s.TotalHours, s.TotalMinutes)
}

// yAxisMax leaves 10% headroom above the tallest bar for its label.
func yAxisMax(maxHours float64) float64 {
	if maxHours <= 0 {
		return 1
	}
	return math.Round(maxHours*1.1*100) / 100
}
