package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/google/uuid"
)

// InsertSessionSamples batch-inserts score timeline samples. Returns the number
// actually inserted (skipped duplicates via ON CONFLICT DO NOTHING).
func (db *DB) InsertSessionSamples(ctx context.Context, rows []models.SessionSampleRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO session_samples (session_id, user_id, time, posture_score, rep_count, phase)
VALUES `
	args := make([]any, 0, len(rows)*6)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 6
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args, r.SessionID, r.UserID, r.Time, r.PostureScore, r.RepCount, r.Phase)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting session samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QuerySessionSamples retrieves a session's timeline, oldest first.
func (db *DB) QuerySessionSamples(ctx context.Context, sessionID uuid.UUID) ([]models.SessionSampleRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, user_id, time, posture_score, rep_count, phase
		 FROM session_samples
		 WHERE session_id = $1
		 ORDER BY time ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session samples: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSampleRow
	for rows.Next() {
		var r models.SessionSampleRow
		if err := rows.Scan(&r.SessionID, &r.UserID, &r.Time, &r.PostureScore, &r.RepCount, &r.Phase); err != nil {
			return nil, fmt.Errorf("scanning session sample: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// TimelinePoint is one bucket of a downsampled session timeline.
type TimelinePoint struct {
	Time     time.Time `json:"time"`
	AvgScore float64   `json:"avg_score"`
	MinScore int       `json:"min_score"`
	MaxScore int       `json:"max_score"`
	Reps     int       `json:"reps"`
	Count    int64     `json:"count"`
}

// GetScoreTimeline returns a session's samples downsampled into fixed-width
// buckets of bucketSeconds each.
func (db *DB) GetScoreTimeline(ctx context.Context, sessionID uuid.UUID, bucketSeconds int) ([]TimelinePoint, error) {
	if bucketSeconds <= 0 {
		bucketSeconds = 5
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT to_timestamp(floor(extract(epoch FROM time) / $2) * $2) AS bucket,
		        AVG(posture_score),
		        MIN(posture_score),
		        MAX(posture_score),
		        MAX(rep_count),
		        COUNT(*)
		 FROM session_samples
		 WHERE session_id = $1
		 GROUP BY bucket
		 ORDER BY bucket ASC`,
		sessionID, bucketSeconds)
	if err != nil {
		return nil, fmt.Errorf("querying score timeline: %w", err)
	}
	defer rows.Close()

	var result []TimelinePoint
	for rows.Next() {
		var p TimelinePoint
		if err := rows.Scan(&p.Time, &p.AvgScore, &p.MinScore, &p.MaxScore, &p.Reps, &p.Count); err != nil {
			return nil, fmt.Errorf("scanning timeline point: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
