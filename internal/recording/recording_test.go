package recording

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/pose"
)

func testFrame(ts time.Time, y float64) models.FramePayload {
	kps := make([]models.FrameKeypoint, len(pose.CocoNames))
	for i, name := range pose.CocoNames {
		kps[i] = models.FrameKeypoint{Name: name, X: 0.5, Y: y, Confidence: 0.9}
	}
	return models.FramePayload{Timestamp: models.FrameTime{Time: ts}, Keypoints: kps}
}

func TestWriteAndOpen(t *testing.T) {
	for _, ext := range []string{Ext, ExtGz} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session"+ext)
			started := time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC)

			w, err := Create(path, Header{Exercise: "bridge", StartedAt: started, Device: "webcam"})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			for i := 0; i < 3; i++ {
				if err := w.WriteFrame(testFrame(started.Add(time.Duration(i)*time.Second), 0.5)); err != nil {
					t.Fatalf("WriteFrame: %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			rec, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if rec.Header.Version != FormatVersion {
				t.Errorf("version = %d, want %d", rec.Header.Version, FormatVersion)
			}
			if rec.Header.Exercise != "bridge" {
				t.Errorf("exercise = %q, want bridge", rec.Header.Exercise)
			}
			if !rec.Header.StartedAt.Equal(started) {
				t.Errorf("started_at = %v, want %v", rec.Header.StartedAt, started)
			}
			if len(rec.Frames) != 3 {
				t.Fatalf("frames = %d, want 3", len(rec.Frames))
			}
			if got := rec.Frames[2].Timestamp.Time; !got.Equal(started.Add(2 * time.Second)) {
				t.Errorf("frame 2 timestamp = %v, want %v", got, started.Add(2*time.Second))
			}
			if rec.SkippedLines != 0 {
				t.Errorf("skipped = %d, want 0", rec.SkippedLines)
			}
		})
	}
}

func TestReadSkipsCorruptFrameLines(t *testing.T) {
	input := strings.Join([]string{
		`{"version":1,"exercise":"squat","started_at":"2026-05-11T08:00:00Z"}`,
		`{"timestamp":1778400000000,"keypoints":[{"name":"nose","x":0.5,"y":0.3,"confidence":0.8}]}`,
		`{"timestamp":not-json`,
		``,
		`{"timestamp":1778400001000,"keypoints":[{"name":"nose","x":0.5,"y":0.3,"confidence":0.8}]}`,
	}, "\n")

	rec, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rec.Frames) != 2 {
		t.Errorf("frames = %d, want 2", len(rec.Frames))
	}
	if rec.SkippedLines != 1 {
		t.Errorf("skipped = %d, want 1", rec.SkippedLines)
	}
}

func TestReadRejectsBadHeader(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"garbage header", "not json at all\n"},
		{"future version", `{"version":99,"exercise":"bridge"}` + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestIsRecordingFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"bridge_20260511.jsonl", true},
		{"bridge_20260511.jsonl.gz", true},
		{"bridge_20260511.json", false},
		{"notes.txt", false},
	}
	for _, tc := range cases {
		if got := IsRecordingFile(tc.name); got != tc.want {
			t.Errorf("IsRecordingFile(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
