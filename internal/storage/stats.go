package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored sessions.
type DataStats struct {
	TotalSessions  int64              `json:"total_sessions"`
	TotalReps      int64              `json:"total_reps"`
	TotalFrames    int64              `json:"total_frames"`
	TotalSamples   int64              `json:"total_samples"`
	EarliestData   *time.Time         `json:"earliest_data"`
	LatestData     *time.Time         `json:"latest_data"`
	SessionsByType []ExerciseTypeStat `json:"sessions_by_type"`
}

// ExerciseTypeStat holds summary stats for a single exercise type.
type ExerciseTypeStat struct {
	Name            string   `json:"name"`
	Count           int64    `json:"count"`
	TotalDuration   float64  `json:"total_duration_sec"`
	TotalReps       int64    `json:"total_reps"`
	AvgPostureScore *float64 `json:"avg_posture_score,omitempty"`
}

// GetDataStats returns aggregate statistics for a user's stored sessions.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	// Session totals in one pass
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(frames), 0)
		 FROM exercise_sessions WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSessions, &stats.TotalReps, &stats.TotalFrames)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	// Total timeline samples
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_samples WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSamples)
	if err != nil {
		return nil, fmt.Errorf("counting samples: %w", err)
	}

	// Date range
	err = db.Pool.QueryRow(ctx,
		`SELECT MIN(started_at), MAX(ended_at)
		 FROM exercise_sessions WHERE user_id = $1`, userID,
	).Scan(&stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("querying date range: %w", err)
	}

	// Sessions by exercise type
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_type, COUNT(*), COALESCE(SUM(duration_seconds), 0),
		        COALESCE(SUM(reps), 0), AVG(posture_score)
		 FROM exercise_sessions
		 WHERE user_id = $1
		 GROUP BY exercise_type
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseTypeStat
		if err := rows.Scan(&s.Name, &s.Count, &s.TotalDuration, &s.TotalReps, &s.AvgPostureScore); err != nil {
			return nil, fmt.Errorf("scanning exercise type stat: %w", err)
		}
		stats.SessionsByType = append(stats.SessionsByType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
