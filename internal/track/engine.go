package track

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/posetrack/internal/config"
	"github.com/claude/posetrack/internal/models"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for operations on unknown or already
// finished sessions.
var ErrSessionNotFound = errors.New("session not found")

// sweepEvery is how often the engine checks for idle sessions.
const sweepEvery = 30 * time.Second

// SessionStore persists finished sessions and their timelines.
type SessionStore interface {
	InsertSession(ctx context.Context, row models.SessionRow) (bool, error)
	InsertSessionSamples(ctx context.Context, rows []models.SessionSampleRow) (int64, error)
}

// Engine manages live tracking sessions. Each session owns an isolated
// pipeline; the engine only serializes registry access.
type Engine struct {
	tracking config.TrackingConfig
	store    SessionStore
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewEngine creates an engine backed by the given store.
func NewEngine(tracking config.TrackingConfig, store SessionStore, log *slog.Logger) *Engine {
	return &Engine{
		tracking: tracking,
		store:    store,
		log:      log,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// StartSession creates and registers a live session for the given exercise.
// The exercise type must already be normalized.
func (e *Engine) StartSession(userID int, exerciseType string) (*Session, error) {
	cfg := e.tracking.Resolve(exerciseType)
	s, err := newSession(userID, exerciseType, cfg)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.sessions[s.ID] = s
	e.mu.Unlock()

	e.log.Info("session started",
		"session_id", s.ID, "exercise", exerciseType, "user_id", userID)
	return s, nil
}

// Get returns a live session by ID.
func (e *Engine) Get(id uuid.UUID) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

// ProcessFrames runs a batch of frames through a live session's pipeline.
func (e *Engine) ProcessFrames(id uuid.UUID, batch models.FrameBatch) (*BatchResult, error) {
	s, ok := e.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.processBatch(batch)
}

// StopSession finalizes a live session, persists it and removes it from the
// registry. Stopping is safe at any time; a session with no frames stores
// zero duration and reps with absent score fields.
func (e *Engine) StopSession(ctx context.Context, id uuid.UUID, notes string) (*models.SessionRow, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if ok {
		delete(e.sessions, id)
	}
	e.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.finishSession(ctx, s, notes)
}

// LiveSessionInfo is a snapshot of one running session.
type LiveSessionInfo struct {
	ID           uuid.UUID `json:"id"`
	UserID       int       `json:"user_id"`
	ExerciseType string    `json:"exercise_type"`
	StartedAt    time.Time `json:"started_at"`
	Frames       int       `json:"frames"`
	Reps         int       `json:"reps"`
	Score        int       `json:"score"`
	Phase        string    `json:"phase"`
}

// LiveSessions returns a snapshot of all running sessions, newest first.
func (e *Engine) LiveSessions() []LiveSessionInfo {
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	result := make([]LiveSessionInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, s.Snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result
}

// Run sweeps idle sessions until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepIdle(ctx)
		}
	}
}

// sweepIdle finalizes sessions that have not seen a frame within the
// configured idle timeout.
func (e *Engine) sweepIdle(ctx context.Context) {
	timeout := e.tracking.IdleTimeout()
	if timeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-timeout)

	e.mu.Lock()
	var expired []*Session
	for id, s := range e.sessions {
		if s.idleSince().Before(cutoff) {
			delete(e.sessions, id)
			expired = append(expired, s)
		}
	}
	e.mu.Unlock()

	for _, s := range expired {
		e.log.Info("auto-finalizing idle session",
			"session_id", s.ID, "exercise", s.ExerciseType)
		if _, err := e.finishSession(ctx, s, "auto-finalized after idle timeout"); err != nil {
			e.log.Error("failed to finalize idle session", "session_id", s.ID, "error", err)
		}
	}
}

// finishSession finalizes an already deregistered session and persists it.
func (e *Engine) finishSession(ctx context.Context, s *Session, notes string) (*models.SessionRow, error) {
	row, samples, err := s.finalize(notes)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.InsertSession(ctx, *row); err != nil {
		return nil, err
	}
	if len(samples) > 0 {
		if _, err := e.store.InsertSessionSamples(ctx, samples); err != nil {
			// The session row is already stored; a lost timeline is not
			// worth failing the stop for.
			e.log.Error("failed to store session samples", "session_id", s.ID, "error", err)
		}
	}

	s.broadcast("complete", row)

	e.log.Info("session finished",
		"session_id", s.ID, "exercise", s.ExerciseType,
		"reps", row.Reps, "frames", row.Frames, "duration_sec", row.DurationSeconds)
	return row, nil
}
