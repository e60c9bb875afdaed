package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/google/uuid"
)

// InsertSession inserts a finished session row. Returns true if inserted,
// false if a row with the same ID already exists.
func (db *DB) InsertSession(ctx context.Context, row models.SessionRow) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO exercise_sessions (id, user_id, exercise_type, started_at, ended_at,
		 duration_seconds, reps, accuracy, posture_score, score_p50, score_p95,
		 score_min, score_max, frames, confident_frames, source, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.UserID, row.ExerciseType, row.StartedAt, row.EndedAt,
		row.DurationSeconds, row.Reps, row.Accuracy, row.PostureScore,
		row.ScoreP50, row.ScoreP95, row.ScoreMin, row.ScoreMax,
		row.Frames, row.ConfidentFrames, row.Source, row.Notes)
	if err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// QuerySessions retrieves sessions in a time range, newest first.
// exerciseType narrows the result when non-empty.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time, userID int, exerciseType string) ([]models.SessionRow, error) {
	query := `SELECT id, user_id, exercise_type, started_at, ended_at,
	 duration_seconds, reps, accuracy, posture_score, score_p50, score_p95,
	 score_min, score_max, frames, confident_frames, source, notes
	 FROM exercise_sessions
	 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if exerciseType != "" {
		query += ` AND exercise_type = $4`
		args = append(args, exerciseType)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	return scanSessionRows(rows)
}

// SessionDetail is a stored session with its score timeline.
type SessionDetail struct {
	models.SessionRow
	Samples []models.SessionSampleRow `json:"samples"`
}

// GetSession retrieves a single session by ID with its samples.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*SessionDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, exercise_type, started_at, ended_at,
		 duration_seconds, reps, accuracy, posture_score, score_p50, score_p95,
		 score_min, score_max, frames, confident_frames, source, notes
		 FROM exercise_sessions
		 WHERE id = $1 AND user_id = $2`,
		sessionID, userID)

	var s models.SessionRow
	err := row.Scan(&s.ID, &s.UserID, &s.ExerciseType, &s.StartedAt, &s.EndedAt,
		&s.DurationSeconds, &s.Reps, &s.Accuracy, &s.PostureScore,
		&s.ScoreP50, &s.ScoreP95, &s.ScoreMin, &s.ScoreMax,
		&s.Frames, &s.ConfidentFrames, &s.Source, &s.Notes)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	detail := &SessionDetail{SessionRow: s}

	samples, err := db.QuerySessionSamples(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	detail.Samples = samples

	return detail, nil
}

func scanSessionRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.SessionRow, error) {
	var result []models.SessionRow
	for rows.Next() {
		var s models.SessionRow
		if err := rows.Scan(&s.ID, &s.UserID, &s.ExerciseType, &s.StartedAt, &s.EndedAt,
			&s.DurationSeconds, &s.Reps, &s.Accuracy, &s.PostureScore,
			&s.ScoreP50, &s.ScoreP95, &s.ScoreMin, &s.ScoreMax,
			&s.Frames, &s.ConfidentFrames, &s.Source, &s.Notes); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
