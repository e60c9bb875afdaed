package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ReplayLog represents a single replay or stream run's outcome.
type ReplayLog struct {
	ID              int64            `json:"id"`
	UserID          int              `json:"user_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Source          string           `json:"source"`
	Status          string           `json:"status"`
	FilesRead       int              `json:"files_read"`
	FramesRead      int              `json:"frames_read"`
	FramesProcessed int64            `json:"frames_processed"`
	SessionsCreated int              `json:"sessions_created"`
	RepsCounted     int              `json:"reps_counted"`
	DurationMs      *int             `json:"duration_ms"`
	ErrorMessage    *string          `json:"error_message"`
	Metadata        *json.RawMessage `json:"metadata"`
}

// InsertReplayLog creates a new replay log entry and returns its ID.
func (db *DB) InsertReplayLog(ctx context.Context, log ReplayLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO replay_logs (user_id, source, status, files_read, frames_read,
		 frames_processed, sessions_created, reps_counted, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id`,
		log.UserID, log.Source, log.Status, log.FilesRead, log.FramesRead,
		log.FramesProcessed, log.SessionsCreated, log.RepsCounted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting replay log: %w", err)
	}
	return id, nil
}

// UpdateReplayLog updates an existing replay log entry (typically from "running" to "success" or "error").
func (db *DB) UpdateReplayLog(ctx context.Context, id int64, log ReplayLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE replay_logs SET
		 status = $2, files_read = $3, frames_read = $4, frames_processed = $5,
		 sessions_created = $6, reps_counted = $7, duration_ms = $8,
		 error_message = $9, metadata = $10
		 WHERE id = $1`,
		id, log.Status, log.FilesRead, log.FramesRead, log.FramesProcessed,
		log.SessionsCreated, log.RepsCounted, log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating replay log %d: %w", id, err)
	}
	return nil
}

// QueryReplayLogs returns the most recent replay logs for a user.
func (db *DB) QueryReplayLogs(ctx context.Context, userID, limit int) ([]ReplayLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, files_read, frames_read,
		 frames_processed, sessions_created, reps_counted, duration_ms, error_message, metadata
		 FROM replay_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying replay logs: %w", err)
	}
	defer rows.Close()

	var result []ReplayLog
	for rows.Next() {
		var l ReplayLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status,
			&l.FilesRead, &l.FramesRead, &l.FramesProcessed, &l.SessionsCreated,
			&l.RepsCounted, &l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning replay log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
