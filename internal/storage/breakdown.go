package storage

import (
	"context"
	"fmt"
	"time"
)

// ScoreBand holds the count and percentage of sessions in one posture score range.
type ScoreBand struct {
	Band       string  `json:"band"`
	ScoreRange string  `json:"score_range"`
	Sessions   int     `json:"sessions"`
	Pct        float64 `json:"pct"`
}

// ExerciseBreakdown holds aggregated form stats for a single exercise type.
type ExerciseBreakdown struct {
	Type             string   `json:"type"`
	Sessions         int      `json:"sessions"`
	TotalReps        int      `json:"total_reps"`
	AvgPostureScore  *float64 `json:"avg_posture_score,omitempty"`
	BestPostureScore *int     `json:"best_posture_score,omitempty"`
	AvgAccuracy      *float64 `json:"avg_accuracy,omitempty"`
}

// ProgressionPoint holds one day's data for a specific exercise.
type ProgressionPoint struct {
	Date             string   `json:"date"`
	BestPostureScore *int     `json:"best_posture_score,omitempty"`
	TotalReps        int      `json:"total_reps"`
	Sessions         int      `json:"sessions"`
	AvgAccuracy      *float64 `json:"avg_accuracy,omitempty"`
}

// FormBreakdownResult holds the complete form-quality analysis.
type FormBreakdownResult struct {
	ScoreDistribution []ScoreBand         `json:"score_distribution"`
	NeedsWorkPct      float64             `json:"needs_work_pct"`
	TotalSessions     int                 `json:"total_sessions"`
	ScoredSessions    int                 `json:"scored_sessions"`
	Exercises         []ExerciseBreakdown `json:"exercises"`
	Progression       []ProgressionPoint  `json:"progression,omitempty"`
}

// GetFormBreakdown returns posture score distribution, per-exercise form stats,
// and optional day-by-day progression for one exercise.
// Sessions without a posture score (no confident frames) land in the
// unscored band.
func (db *DB) GetFormBreakdown(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*FormBreakdownResult, error) {
	result := &FormBreakdownResult{}

	// Query 1: Posture score distribution
	bandRows, err := db.Pool.Query(ctx,
		`SELECT band, score_range, sessions FROM (
			SELECT
				CASE
					WHEN posture_score IS NULL THEN 'unscored'
					WHEN posture_score >= 90 THEN 'excellent'
					WHEN posture_score >= 75 THEN 'good'
					WHEN posture_score >= 60 THEN 'fair'
					ELSE 'poor'
				END AS band,
				CASE
					WHEN posture_score IS NULL THEN 'unscored'
					WHEN posture_score >= 90 THEN '90-100'
					WHEN posture_score >= 75 THEN '75-89'
					WHEN posture_score >= 60 THEN '60-74'
					ELSE '<60'
				END AS score_range,
				COUNT(*)::int AS sessions
			FROM exercise_sessions
			WHERE started_at >= $1 AND started_at < $2
				AND user_id = $3
			GROUP BY band, score_range
		) sub
		ORDER BY CASE band
			WHEN 'excellent' THEN 1
			WHEN 'good' THEN 2
			WHEN 'fair' THEN 3
			WHEN 'poor' THEN 4
			WHEN 'unscored' THEN 5
		END`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying score distribution: %w", err)
	}
	defer bandRows.Close()

	var totalSessions, scoredSessions, needsWorkSessions int
	for bandRows.Next() {
		var b ScoreBand
		if err := bandRows.Scan(&b.Band, &b.ScoreRange, &b.Sessions); err != nil {
			return nil, fmt.Errorf("scanning score band: %w", err)
		}
		totalSessions += b.Sessions
		if b.Band != "unscored" {
			scoredSessions += b.Sessions
		}
		if b.Band == "fair" || b.Band == "poor" {
			needsWorkSessions += b.Sessions
		}
		result.ScoreDistribution = append(result.ScoreDistribution, b)
	}
	if err := bandRows.Err(); err != nil {
		return nil, err
	}

	result.TotalSessions = totalSessions
	result.ScoredSessions = scoredSessions

	// Compute percentages
	for i := range result.ScoreDistribution {
		if totalSessions > 0 {
			result.ScoreDistribution[i].Pct = float64(result.ScoreDistribution[i].Sessions) / float64(totalSessions) * 100
		}
	}

	if scoredSessions > 0 {
		result.NeedsWorkPct = float64(needsWorkSessions) / float64(scoredSessions) * 100
	}

	// Query 2: Per-exercise summary
	exRows, err := db.Pool.Query(ctx,
		`SELECT exercise_type,
		        COUNT(*)::int,
		        COALESCE(SUM(reps), 0)::int,
		        AVG(posture_score),
		        MAX(posture_score),
		        AVG(accuracy)
		 FROM exercise_sessions
		 WHERE started_at >= $1 AND started_at < $2
		   AND user_id = $3
		 GROUP BY exercise_type
		 ORDER BY COUNT(*) DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise breakdown: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var e ExerciseBreakdown
		if err := exRows.Scan(&e.Type, &e.Sessions, &e.TotalReps, &e.AvgPostureScore, &e.BestPostureScore, &e.AvgAccuracy); err != nil {
			return nil, fmt.Errorf("scanning exercise breakdown: %w", err)
		}
		result.Exercises = append(result.Exercises, e)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	// Query 3: Day-by-day progression (only when filter is set)
	if exerciseFilter != "" {
		progRows, err := db.Pool.Query(ctx,
			`SELECT started_at::date,
			        MAX(posture_score),
			        COALESCE(SUM(reps), 0)::int,
			        COUNT(*)::int,
			        AVG(accuracy)
			 FROM exercise_sessions
			 WHERE started_at >= $1 AND started_at < $2
			   AND user_id = $3
			   AND exercise_type ILIKE '%' || $4 || '%'
			 GROUP BY started_at::date
			 ORDER BY started_at::date ASC`,
			start, end, userID, exerciseFilter)
		if err != nil {
			return nil, fmt.Errorf("querying exercise progression: %w", err)
		}
		defer progRows.Close()

		for progRows.Next() {
			var p ProgressionPoint
			var d time.Time
			if err := progRows.Scan(&d, &p.BestPostureScore, &p.TotalReps, &p.Sessions, &p.AvgAccuracy); err != nil {
				return nil, fmt.Errorf("scanning exercise progression: %w", err)
			}
			p.Date = d.Format("2006-01-02")
			result.Progression = append(result.Progression, p)
		}
		if err := progRows.Err(); err != nil {
			return nil, err
		}
	}

	return result, nil
}
