// Package report renders static HTML charts from aggregated session data.
package report

import (
	"io"

	"github.com/claude/posetrack/internal/storage"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderTrend writes a self-contained HTML page charting form quality and
// practice volume per period. Periods with no scored sessions render as gaps
// in the score line.
func RenderTrend(w io.Writer, periods []storage.TrendPeriod) error {
	labels := make([]string, len(periods))
	scores := make([]opts.LineData, len(periods))
	reps := make([]opts.BarData, len(periods))
	sessions := make([]opts.BarData, len(periods))
	for i, p := range periods {
		labels[i] = p.Period
		if p.Totals == nil {
			continue
		}
		if p.Totals.AvgPostureScore != nil {
			scores[i] = opts.LineData{Value: *p.Totals.AvgPostureScore}
		}
		reps[i] = opts.BarData{Value: p.Totals.TotalReps}
		sessions[i] = opts.BarData{Value: p.Totals.Sessions}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Posture Trend", Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Form Quality", Subtitle: "average posture score per period"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "score"}),
	)
	line.SetXAxis(labels).AddSeries("posture score", scores,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Practice Volume", Subtitle: "reps and sessions per period"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("reps", reps).
		AddSeries("sessions", sessions)

	page := components.NewPage()
	page.AddCharts(line, bar)
	return page.Render(w)
}
