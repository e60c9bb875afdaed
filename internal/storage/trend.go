package storage

import (
	"context"
	"fmt"
	"time"
)

// ExercisePeriodSummary holds aggregated session stats for one exercise type
// within a period.
type ExercisePeriodSummary struct {
	Type            string   `json:"type"`
	Count           int      `json:"count"`
	AvgDuration     float64  `json:"avg_duration_sec"`
	TotalReps       int      `json:"total_reps"`
	AvgPostureScore *float64 `json:"avg_posture_score,omitempty"`
	AvgAccuracy     *float64 `json:"avg_accuracy,omitempty"`
}

// PeriodTotals holds combined session stats for one time period.
type PeriodTotals struct {
	Sessions        int      `json:"sessions"`
	TotalReps       int      `json:"total_reps"`
	TotalDuration   float64  `json:"total_duration_sec"`
	AvgPostureScore *float64 `json:"avg_posture_score,omitempty"`
	ActiveDays      int      `json:"active_days"`
}

// TrendPeriod holds per-exercise and total stats for one time period.
type TrendPeriod struct {
	Period    string                  `json:"period"`
	Exercises []ExercisePeriodSummary `json:"exercises"`
	Totals    *PeriodTotals           `json:"totals,omitempty"`
}

// GetExerciseTrend returns aggregated session stats per period.
func (db *DB) GetExerciseTrend(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrendPeriod, error) {
	// Query 1: Session stats grouped by period + exercise type
	exerciseRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period,
		        exercise_type,
		        COUNT(*)::int,
		        AVG(duration_seconds),
		        COALESCE(SUM(reps), 0)::int,
		        AVG(posture_score),
		        AVG(accuracy)
		 FROM exercise_sessions
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 GROUP BY period, exercise_type
		 ORDER BY period DESC, COUNT(*) DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise trend: %w", err)
	}
	defer exerciseRows.Close()

	// Build map of period -> exercise summaries
	periodMap := make(map[string]*TrendPeriod)
	var periodOrder []string

	for exerciseRows.Next() {
		var periodTime time.Time
		var es ExercisePeriodSummary
		if err := exerciseRows.Scan(&periodTime, &es.Type, &es.Count, &es.AvgDuration, &es.TotalReps, &es.AvgPostureScore, &es.AvgAccuracy); err != nil {
			return nil, fmt.Errorf("scanning exercise trend: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrendPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		periodMap[key].Exercises = append(periodMap[key].Exercises, es)
	}
	if err := exerciseRows.Err(); err != nil {
		return nil, err
	}

	// Query 2: Period totals across all exercise types
	totalRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(reps), 0)::int,
		        COALESCE(SUM(duration_seconds), 0),
		        AVG(posture_score),
		        COUNT(DISTINCT started_at::date)::int AS active_days
		 FROM exercise_sessions
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying period totals: %w", err)
	}
	defer totalRows.Close()

	for totalRows.Next() {
		var periodTime time.Time
		var pt PeriodTotals
		if err := totalRows.Scan(&periodTime, &pt.Sessions, &pt.TotalReps, &pt.TotalDuration, &pt.AvgPostureScore, &pt.ActiveDays); err != nil {
			return nil, fmt.Errorf("scanning period totals: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrendPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		periodMap[key].Totals = &pt
	}
	if err := totalRows.Err(); err != nil {
		return nil, err
	}

	// Assemble result in order
	result := make([]TrendPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// RangeSummary holds aggregate session stats for one arbitrary time range.
type RangeSummary struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Sessions        int      `json:"sessions"`
	TotalReps       int      `json:"total_reps"`
	TotalDuration   float64  `json:"total_duration_sec"`
	AvgPostureScore *float64 `json:"avg_posture_score,omitempty"`
	AvgAccuracy     *float64 `json:"avg_accuracy,omitempty"`
	ActiveDays      int      `json:"active_days"`
}

// GetRangeSummary returns aggregate stats for a single time range. Callers
// comparing two periods invoke it once per range.
func (db *DB) GetRangeSummary(ctx context.Context, start, end time.Time, userID int) (*RangeSummary, error) {
	s := &RangeSummary{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
	}
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*)::int,
		        COALESCE(SUM(reps), 0)::int,
		        COALESCE(SUM(duration_seconds), 0),
		        AVG(posture_score),
		        AVG(accuracy),
		        COUNT(DISTINCT started_at::date)::int
		 FROM exercise_sessions
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3`,
		start, end, userID,
	).Scan(&s.Sessions, &s.TotalReps, &s.TotalDuration, &s.AvgPostureScore, &s.AvgAccuracy, &s.ActiveDays)
	if err != nil {
		return nil, fmt.Errorf("querying range summary: %w", err)
	}
	return s, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "week"
	}
}
