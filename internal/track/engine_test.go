package track

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/posetrack/internal/config"
	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/motion"
	"github.com/claude/posetrack/internal/pose"
	"github.com/google/uuid"
)

// fakeStore collects persisted rows in memory.
type fakeStore struct {
	mu      sync.Mutex
	rows    []models.SessionRow
	samples []models.SessionSampleRow
}

func (f *fakeStore) InsertSession(_ context.Context, row models.SessionRow) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return true, nil
}

func (f *fakeStore) InsertSessionSamples(_ context.Context, rows []models.SessionSampleRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, rows...)
	return int64(len(rows)), nil
}

func newTestEngine(tracking config.TrackingConfig) (*Engine, *fakeStore) {
	store := &fakeStore{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(tracking, store, log), store
}

// testFrame builds a full-body frame with every joint at the given
// confidence and both wrists at height y.
func testFrame(ts time.Time, y, conf float64) models.FramePayload {
	kps := make([]models.FrameKeypoint, len(pose.CocoNames))
	for i, name := range pose.CocoNames {
		kps[i] = models.FrameKeypoint{Name: name, X: 0.5, Y: 0.5, Confidence: conf}
	}
	li, _ := pose.JointIndex(pose.LeftWrist)
	ri, _ := pose.JointIndex(pose.RightWrist)
	kps[li].Y = y
	kps[ri].Y = y
	return models.FramePayload{Timestamp: models.FrameTime{Time: ts}, Keypoints: kps}
}

// TestEngineSessionLifecycle walks a session from start through frames to
// stop and checks what lands in the store. With the default thresholds
// (0.6/0.4, alpha 0.2) two raise-lower swings smooth out to two reps.
func TestEngineSessionLifecycle(t *testing.T) {
	e, store := newTestEngine(config.DefaultTracking())

	s, err := e.StartSession(1, models.ExerciseBridge)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	base := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var frames []models.FramePayload
	for i, y := range []float64{0.8, 0.2, 0.8, 0.2} {
		frames = append(frames, testFrame(base.Add(time.Duration(i)*2*time.Second), y, 0.9))
	}

	res, err := e.ProcessFrames(s.ID, models.FrameBatch{Frames: frames})
	if err != nil {
		t.Fatalf("ProcessFrames: %v", err)
	}
	if res.Processed != 4 {
		t.Errorf("Processed = %d, want 4", res.Processed)
	}
	if res.RepCount != 2 {
		t.Errorf("RepCount = %d, want 2", res.RepCount)
	}
	if !res.RepCounted {
		t.Error("RepCounted = false, want true")
	}
	if res.Score != 90 {
		t.Errorf("Score = %d, want 90", res.Score)
	}

	live := e.LiveSessions()
	if len(live) != 1 {
		t.Fatalf("LiveSessions len = %d, want 1", len(live))
	}
	if live[0].Reps != 2 || live[0].Frames != 4 {
		t.Errorf("live snapshot = %+v, want 2 reps over 4 frames", live[0])
	}

	row, err := e.StopSession(context.Background(), s.ID, "morning set")
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if row.Reps != 2 {
		t.Errorf("row.Reps = %d, want 2", row.Reps)
	}
	if row.DurationSeconds != 6 {
		t.Errorf("row.DurationSeconds = %d, want 6", row.DurationSeconds)
	}
	if row.PostureScore == nil || *row.PostureScore != 90 {
		t.Errorf("row.PostureScore = %v, want 90", row.PostureScore)
	}
	if row.Accuracy == nil || *row.Accuracy != 100 {
		t.Errorf("row.Accuracy = %v, want 100", row.Accuracy)
	}
	if row.Source != models.SourceLive {
		t.Errorf("row.Source = %q, want %q", row.Source, models.SourceLive)
	}
	if row.Notes == nil || *row.Notes != "morning set" {
		t.Errorf("row.Notes = %v, want morning set", row.Notes)
	}
	if !row.StartedAt.Equal(base) {
		t.Errorf("row.StartedAt = %v, want %v", row.StartedAt, base)
	}

	if len(store.rows) != 1 {
		t.Fatalf("stored rows = %d, want 1", len(store.rows))
	}
	// 2s frame spacing beats the 1s sample cadence, so every frame sampled
	if len(store.samples) != 4 {
		t.Errorf("stored samples = %d, want 4", len(store.samples))
	}

	if _, ok := e.Get(s.ID); ok {
		t.Error("session still registered after stop")
	}
}

// TestProcessFramesUnknownSession verifies frames for a session the engine
// does not know are rejected with the sentinel.
func TestProcessFramesUnknownSession(t *testing.T) {
	e, _ := newTestEngine(config.DefaultTracking())

	_, err := e.ProcessFrames(uuid.New(), models.FrameBatch{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

// TestStopSessionTwice verifies the second stop reports the session gone
// rather than double-persisting.
func TestStopSessionTwice(t *testing.T) {
	e, store := newTestEngine(config.DefaultTracking())

	s, err := e.StartSession(1, models.ExerciseSquat)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := e.StopSession(context.Background(), s.ID, ""); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if _, err := e.StopSession(context.Background(), s.ID, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second stop err = %v, want ErrSessionNotFound", err)
	}
	if len(store.rows) != 1 {
		t.Errorf("stored rows = %d, want 1", len(store.rows))
	}
}

// TestZeroFrameSessionStored verifies a session stopped before any frame is
// still persisted, with zero duration and absent score fields.
func TestZeroFrameSessionStored(t *testing.T) {
	e, store := newTestEngine(config.DefaultTracking())

	s, err := e.StartSession(1, models.ExercisePelvicTilt)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	row, err := e.StopSession(context.Background(), s.ID, "")
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}

	if row.DurationSeconds != 0 || row.Reps != 0 || row.Frames != 0 {
		t.Errorf("zero-frame row = %+v, want zero duration/reps/frames", row)
	}
	if row.Accuracy != nil || row.PostureScore != nil {
		t.Errorf("zero-frame row has scores: accuracy=%v posture=%v", row.Accuracy, row.PostureScore)
	}
	if len(store.rows) != 1 {
		t.Errorf("stored rows = %d, want 1", len(store.rows))
	}
	if len(store.samples) != 0 {
		t.Errorf("stored samples = %d, want 0", len(store.samples))
	}
}

// TestInvalidFrameAborts verifies a keypoint-count change mid-session aborts
// the batch with the smoother's sentinel, counting the frames before it.
func TestInvalidFrameAborts(t *testing.T) {
	e, _ := newTestEngine(config.DefaultTracking())

	s, err := e.StartSession(1, models.ExerciseBridge)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	base := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	good := testFrame(base, 0.8, 0.9)
	short := models.FramePayload{
		Timestamp: models.FrameTime{Time: base.Add(time.Second)},
		Keypoints: good.Keypoints[:5],
	}

	res, err := e.ProcessFrames(s.ID, models.FrameBatch{Frames: []models.FramePayload{good, short}})
	if !errors.Is(err, motion.ErrKeypointCountMismatch) {
		t.Fatalf("err = %v, want ErrKeypointCountMismatch", err)
	}
	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1", res.Processed)
	}
}

// TestIdleSweepFinalizes verifies sessions without recent frames are
// auto-persisted and deregistered.
func TestIdleSweepFinalizes(t *testing.T) {
	tracking := config.DefaultTracking()
	tracking.IdleTimeoutSec = 1
	e, store := newTestEngine(tracking)

	s, err := e.StartSession(1, models.ExerciseCatCow)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	s.mu.Lock()
	s.lastSeen = time.Now().Add(-2 * time.Second)
	s.mu.Unlock()

	e.sweepIdle(context.Background())

	if _, ok := e.Get(s.ID); ok {
		t.Error("idle session still registered after sweep")
	}
	if len(store.rows) != 1 {
		t.Fatalf("stored rows = %d, want 1", len(store.rows))
	}
	if store.rows[0].Notes == nil {
		t.Error("auto-finalized session should carry a note")
	}
}

// TestSubscribeReceivesEvents verifies posture events per frame, rep events
// per count, and the final complete event.
func TestSubscribeReceivesEvents(t *testing.T) {
	e, _ := newTestEngine(config.DefaultTracking())

	s, err := e.StartSession(1, models.ExerciseBridge)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	base := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var frames []models.FramePayload
	for i, y := range []float64{0.8, 0.2, 0.8, 0.2} {
		frames = append(frames, testFrame(base.Add(time.Duration(i)*2*time.Second), y, 0.9))
	}
	if _, err := e.ProcessFrames(s.ID, models.FrameBatch{Frames: frames}); err != nil {
		t.Fatalf("ProcessFrames: %v", err)
	}
	if _, err := e.StopSession(context.Background(), s.ID, ""); err != nil {
		t.Fatalf("StopSession: %v", err)
	}

	counts := map[string]int{}
	for {
		select {
		case evt := <-ch:
			counts[evt.Name]++
		default:
			if counts["posture"] != 4 {
				t.Errorf("posture events = %d, want 4", counts["posture"])
			}
			if counts["rep"] != 2 {
				t.Errorf("rep events = %d, want 2", counts["rep"])
			}
			if counts["complete"] != 1 {
				t.Errorf("complete events = %d, want 1", counts["complete"])
			}
			return
		}
	}
}
