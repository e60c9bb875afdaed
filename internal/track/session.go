package track

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/motion"
	"github.com/google/uuid"
)

// sampleEvery is the timeline downsampling cadence. One sample per second is
// plenty to reconstruct a session curve without storing every frame.
const sampleEvery = time.Second

// Event is a live session notification for SSE subscribers.
type Event struct {
	Name string
	Data string
}

// Session is one live tracking session. All mutable state is guarded by mu;
// frame batches are processed strictly in arrival order.
type Session struct {
	ID           uuid.UUID
	UserID       int
	ExerciseType string
	StartedAt    time.Time

	mu           sync.Mutex
	pipeline     *motion.Pipeline
	lastScore    int
	lastSeen     time.Time // wall clock of last frame arrival, drives idle sweep
	lastSampleTs time.Time // frame timestamp of last recorded sample
	samples      []models.SessionSampleRow
	closed       bool

	subs   map[chan Event]struct{}
	subsMu sync.Mutex
}

func newSession(userID int, exerciseType string, cfg motion.Config) (*Session, error) {
	s := &Session{
		ID:           uuid.New(),
		UserID:       userID,
		ExerciseType: exerciseType,
		StartedAt:    time.Now(),
		subs:         make(map[chan Event]struct{}),
	}
	s.lastSeen = s.StartedAt

	pl, err := motion.NewPipeline(exerciseType, cfg, motion.Callbacks{
		OnPostureUpdate: func(score int) {
			s.broadcast("posture", map[string]any{"score": score})
		},
		OnRepCount: func(count int) {
			s.broadcast("rep", map[string]any{
				"repCount": count,
				"exercise": exerciseType,
			})
		},
	})
	if err != nil {
		return nil, err
	}
	s.pipeline = pl
	return s, nil
}

// BatchResult summarizes one frame batch, reporting state as of the last
// processed frame.
type BatchResult struct {
	Processed  int    `json:"processed"`
	Score      int    `json:"score"`
	RepCount   int    `json:"repCount"`
	RepCounted bool   `json:"repCounted"`
	Phase      string `json:"phase"`
}

// processBatch runs frames through the pipeline in order. The first invalid
// frame aborts the batch with an error; frames before it are already counted.
func (s *Session) processBatch(batch models.FrameBatch) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionNotFound
	}

	result := &BatchResult{
		Score:    s.lastScore,
		RepCount: s.pipeline.RepCount(),
		Phase:    string(s.pipeline.Phase()),
	}

	for i, frame := range batch.Frames {
		p := frame.Pose()
		if err := p.Validate(); err != nil {
			return result, fmt.Errorf("frame %d: %w", i, err)
		}
		ts := frame.Timestamp.Time
		if ts.IsZero() {
			ts = time.Now()
		}

		res, err := s.pipeline.ProcessFrame(p, ts)
		if err != nil {
			return result, fmt.Errorf("frame %d: %w", i, err)
		}

		result.Processed++
		result.Score = res.Score
		result.RepCount = res.RepCount
		result.Phase = string(res.Phase)
		if res.RepCounted {
			result.RepCounted = true
		}
		s.lastScore = res.Score

		if s.lastSampleTs.IsZero() || ts.Sub(s.lastSampleTs) >= sampleEvery {
			s.samples = append(s.samples, models.SessionSampleRow{
				SessionID:    s.ID,
				UserID:       s.UserID,
				Time:         ts,
				PostureScore: res.Score,
				RepCount:     res.RepCount,
				Phase:        string(res.Phase),
			})
			s.lastSampleTs = ts
		}
	}

	s.lastSeen = time.Now()
	return result, nil
}

// finalize closes the pipeline and builds the storage row. The session window
// uses frame timestamps when frames exist so replayed and live clocks agree.
func (s *Session) finalize(notes string) (*models.SessionRow, []models.SessionSampleRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrSessionNotFound
	}
	s.closed = true

	now := time.Now()
	end := now
	if lf := s.pipeline.LastFrame(); !lf.IsZero() {
		end = lf
	}

	m, err := s.pipeline.Finalize(end)
	if err != nil {
		return nil, nil, err
	}

	startedAt, endedAt := s.StartedAt, now
	if m.Frames > 0 {
		startedAt, endedAt = m.StartedAt, m.EndedAt
	}

	row := models.SessionRow{
		ID:              s.ID,
		UserID:          s.UserID,
		ExerciseType:    s.ExerciseType,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationSeconds: m.DurationSeconds,
		Reps:            m.Reps,
		Accuracy:        m.Accuracy,
		PostureScore:    m.PostureScore,
		ScoreP50:        m.ScoreP50,
		ScoreP95:        m.ScoreP95,
		ScoreMin:        m.ScoreMin,
		ScoreMax:        m.ScoreMax,
		Frames:          m.Frames,
		ConfidentFrames: m.ConfidentFrames,
		Source:          models.SourceLive,
	}
	if notes != "" {
		row.Notes = &notes
	}
	return &row, s.samples, nil
}

// Snapshot returns the session's live state for listings and event streams.
func (s *Session) Snapshot() LiveSessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LiveSessionInfo{
		ID:           s.ID,
		UserID:       s.UserID,
		ExerciseType: s.ExerciseType,
		StartedAt:    s.StartedAt,
		Frames:       s.pipeline.Frames(),
		Reps:         s.pipeline.RepCount(),
		Score:        s.lastScore,
		Phase:        string(s.pipeline.Phase()),
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Subscribe registers an event channel for this session.
func (s *Session) Subscribe() chan Event {
	ch := make(chan Event, 32)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	return ch
}

// Unsubscribe removes an event channel.
func (s *Session) Unsubscribe(ch chan Event) {
	s.subsMu.Lock()
	delete(s.subs, ch)
	s.subsMu.Unlock()
}

func (s *Session) broadcast(name string, payload any) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	evt := Event{Name: name, Data: mustJSON(payload)}
	for ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// slow subscriber, skip
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
