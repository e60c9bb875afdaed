package replay

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/posetrack/internal/config"
	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/pose"
	"github.com/claude/posetrack/internal/recording"
)

func testReplayer() *Replayer {
	return &Replayer{
		tracking: config.DefaultTracking(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func frameAt(ts time.Time, wristY, conf float64) models.FramePayload {
	kps := make([]models.FrameKeypoint, len(pose.CocoNames))
	for i, name := range pose.CocoNames {
		y := 0.4
		if name == pose.LeftWrist || name == pose.RightWrist {
			y = wristY
		}
		kps[i] = models.FrameKeypoint{Name: name, X: 0.5, Y: y, Confidence: conf}
	}
	return models.FramePayload{Timestamp: models.FrameTime{Time: ts}, Keypoints: kps}
}

func bridgeRecording(base time.Time, ys []float64) *recording.Recording {
	rec := &recording.Recording{
		Header: recording.Header{Version: 1, Exercise: "bridge", StartedAt: base},
	}
	for i, y := range ys {
		rec.Frames = append(rec.Frames, frameAt(base.Add(time.Duration(i)*2*time.Second), y, 0.9))
	}
	return rec
}

func TestRunPipelineCountsReps(t *testing.T) {
	rp := testReplayer()
	base := time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC)
	rec := bridgeRecording(base, []float64{0.8, 0.2, 0.8, 0.2})

	row, samples, err := rp.runPipeline("bridge", rec)
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if row == nil {
		t.Fatal("row = nil, want a session")
	}
	if row.Reps != 2 {
		t.Errorf("reps = %d, want 2", row.Reps)
	}
	if row.Source != models.SourceReplay {
		t.Errorf("source = %q, want %q", row.Source, models.SourceReplay)
	}
	if !row.StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", row.StartedAt, base)
	}
	if row.DurationSeconds != 6 {
		t.Errorf("duration = %d, want 6", row.DurationSeconds)
	}
	if len(samples) != 4 {
		t.Fatalf("samples = %d, want 4", len(samples))
	}
	for i, s := range samples {
		if s.SessionID != row.ID {
			t.Errorf("sample %d session = %s, want %s", i, s.SessionID, row.ID)
		}
	}
	if rp.stats.FramesProcessed != 4 {
		t.Errorf("frames processed = %d, want 4", rp.stats.FramesProcessed)
	}
}

func TestRunPipelineSkipsBadFrames(t *testing.T) {
	rp := testReplayer()
	base := time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC)

	good := frameAt(base, 0.5, 0.9)
	short := frameAt(base.Add(time.Second), 0.5, 0.9)
	short.Keypoints = short.Keypoints[:5]
	noTS := frameAt(time.Time{}, 0.5, 0.9)

	rec := &recording.Recording{
		Header: recording.Header{Version: 1, Exercise: "bridge", StartedAt: base},
		Frames: []models.FramePayload{good, short, noTS},
	}

	row, _, err := rp.runPipeline("bridge", rec)
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if row == nil {
		t.Fatal("row = nil, want a session from the surviving frame")
	}
	if row.Frames != 1 {
		t.Errorf("frames = %d, want 1", row.Frames)
	}
	if rp.stats.FramesSkipped != 2 {
		t.Errorf("skipped = %d, want 2", rp.stats.FramesSkipped)
	}
}

func TestRunPipelineNoSurvivingFrames(t *testing.T) {
	rp := testReplayer()
	noTS := frameAt(time.Time{}, 0.5, 0.9)
	rec := &recording.Recording{
		Header: recording.Header{Version: 1, Exercise: "bridge"},
		Frames: []models.FramePayload{noTS},
	}

	row, samples, err := rp.runPipeline("bridge", rec)
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if row != nil {
		t.Errorf("row = %+v, want nil", row)
	}
	if len(samples) != 0 {
		t.Errorf("samples = %d, want 0", len(samples))
	}
}

func TestRunPipelineCarriesHeaderNotes(t *testing.T) {
	rp := testReplayer()
	base := time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC)
	rec := bridgeRecording(base, []float64{0.5})
	rec.Header.Notes = "post-checkup set"

	row, _, err := rp.runPipeline("bridge", rec)
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if row.Notes == nil || *row.Notes != "post-checkup set" {
		t.Errorf("notes = %v, want post-checkup set", row.Notes)
	}
}

// TestSessionIDStable pins the dedup property: the same recording always
// maps to the same session ID, and a different recording does not.
func TestSessionIDStable(t *testing.T) {
	base := time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC)
	rec := bridgeRecording(base, []float64{0.8, 0.2})

	a := sessionID("bridge", rec)
	b := sessionID("bridge", rec)
	if a != b {
		t.Errorf("same recording produced different IDs: %s vs %s", a, b)
	}

	longer := bridgeRecording(base, []float64{0.8, 0.2, 0.8})
	if c := sessionID("bridge", longer); c == a {
		t.Error("different recordings produced the same ID")
	}
}
