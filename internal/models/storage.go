package models

import (
	"time"

	"github.com/google/uuid"
)

// Session sources: how a stored session reached the database.
const (
	SourceLive   = "live"
	SourceReplay = "replay"
)

// SessionRow is a finished exercise session, as persisted and as served.
type SessionRow struct {
	ID              uuid.UUID `json:"id"`
	UserID          int       `json:"user_id"`
	ExerciseType    string    `json:"exercise_type"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Reps            int       `json:"reps"`
	Accuracy        *int      `json:"accuracy"`
	PostureScore    *int      `json:"posture_score"`
	ScoreP50        *float64  `json:"score_p50,omitempty"`
	ScoreP95        *float64  `json:"score_p95,omitempty"`
	ScoreMin        *int      `json:"score_min,omitempty"`
	ScoreMax        *int      `json:"score_max,omitempty"`
	Frames          int       `json:"frames"`
	ConfidentFrames int       `json:"confident_frames"`
	Source          string    `json:"source"`
	Notes           *string   `json:"notes,omitempty"`
}

// SessionSampleRow is one downsampled point of a session's score timeline,
// kept so charts and tools can reconstruct how a session went.
type SessionSampleRow struct {
	SessionID    uuid.UUID `json:"session_id"`
	UserID       int       `json:"user_id"`
	Time         time.Time `json:"time"`
	PostureScore int       `json:"posture_score"`
	RepCount     int       `json:"rep_count"`
	Phase        string    `json:"phase"`
}
