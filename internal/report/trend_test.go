package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/claude/posetrack/internal/storage"
)

func TestRenderTrend(t *testing.T) {
	score := 82.5
	periods := []storage.TrendPeriod{
		{
			Period: "2026-03-02",
			Totals: &storage.PeriodTotals{Sessions: 3, TotalReps: 36, AvgPostureScore: &score, ActiveDays: 2},
		},
		{
			// Unscored period: the score line should show a gap, not a zero.
			Period: "2026-03-09",
			Totals: &storage.PeriodTotals{Sessions: 1, TotalReps: 10, ActiveDays: 1},
		},
	}

	var buf bytes.Buffer
	if err := RenderTrend(&buf, periods); err != nil {
		t.Fatalf("RenderTrend: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"Form Quality", "Practice Volume", "2026-03-02", "posture score"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestRenderTrendEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrend(&buf, nil); err != nil {
		t.Fatalf("RenderTrend with no periods: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a page even with no data")
	}
}
