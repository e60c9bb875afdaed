package motion

import (
	"errors"
	"testing"

	"github.com/claude/posetrack/internal/pose"
)

func kp(x, y, conf float64) pose.Keypoint {
	return pose.Keypoint{X: x, Y: y, Confidence: conf}
}

// TestSmootherFirstFramePassesThrough verifies the smoother primes on the
// first frame and returns it unchanged.
func TestSmootherFirstFramePassesThrough(t *testing.T) {
	s := NewSmoother(0.5, 0.3)
	in := pose.Pose{kp(10, 20, 0.9)}

	out, err := s.Smooth(in)
	if err != nil {
		t.Fatalf("Smooth() error: %v", err)
	}
	if out[0] != in[0] {
		t.Errorf("first frame changed: got %+v, want %+v", out[0], in[0])
	}
}

// TestSmootherFrozenAtAlphaOne: with alpha=1 every later frame returns the
// first frame's positions, since the blend gives the previous value full
// weight.
func TestSmootherFrozenAtAlphaOne(t *testing.T) {
	s := NewSmoother(1, 0.3)
	if _, err := s.Smooth(pose.Pose{kp(10, 20, 0.9)}); err != nil {
		t.Fatalf("priming frame: %v", err)
	}

	for _, in := range []pose.Pose{
		{kp(50, 60, 0.9)},
		{kp(70, 80, 0.9)},
	} {
		out, err := s.Smooth(in)
		if err != nil {
			t.Fatalf("Smooth() error: %v", err)
		}
		if out[0].X != 10 || out[0].Y != 20 {
			t.Errorf("alpha=1 drifted off first frame: got (%v,%v), want (10,20)", out[0].X, out[0].Y)
		}
	}
}

// TestSmootherPassThroughAtAlphaZero: with alpha=0 the current frame's
// positions come back untouched even though blending is active.
func TestSmootherPassThroughAtAlphaZero(t *testing.T) {
	s := NewSmoother(0, 0.3)
	if _, err := s.Smooth(pose.Pose{kp(10, 20, 0.9)}); err != nil {
		t.Fatalf("priming frame: %v", err)
	}

	out, err := s.Smooth(pose.Pose{kp(50, 60, 0.9)})
	if err != nil {
		t.Fatalf("Smooth() error: %v", err)
	}
	if out[0].X != 50 || out[0].Y != 60 {
		t.Errorf("alpha=0 altered frame: got (%v,%v), want (50,60)", out[0].X, out[0].Y)
	}
}

// TestSmootherBlends checks the blend arithmetic and that confidence is
// carried from the current frame, never averaged.
func TestSmootherBlends(t *testing.T) {
	s := NewSmoother(0.5, 0.3)
	if _, err := s.Smooth(pose.Pose{kp(10, 20, 0.9)}); err != nil {
		t.Fatalf("priming frame: %v", err)
	}

	out, err := s.Smooth(pose.Pose{kp(20, 40, 0.8)})
	if err != nil {
		t.Fatalf("Smooth() error: %v", err)
	}
	if out[0].X != 15 || out[0].Y != 30 {
		t.Errorf("blend = (%v,%v), want (15,30)", out[0].X, out[0].Y)
	}
	if out[0].Confidence != 0.8 {
		t.Errorf("confidence = %v, want current frame's 0.8", out[0].Confidence)
	}
}

// TestSmootherConfidenceGate verifies a keypoint passes through raw when
// either side of the blend is below the minimum confidence.
func TestSmootherConfidenceGate(t *testing.T) {
	tests := []struct {
		name     string
		primed   pose.Keypoint
		current  pose.Keypoint
		wantX    float64
		wantY    float64
	}{
		{"current below gate", kp(10, 10, 0.9), kp(50, 50, 0.1), 50, 50},
		{"previous below gate", kp(10, 10, 0.2), kp(50, 50, 0.9), 50, 50},
		{"both confident", kp(10, 10, 0.9), kp(50, 50, 0.9), 30, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSmoother(0.5, 0.3)
			if _, err := s.Smooth(pose.Pose{tt.primed}); err != nil {
				t.Fatalf("priming frame: %v", err)
			}
			out, err := s.Smooth(pose.Pose{tt.current})
			if err != nil {
				t.Fatalf("Smooth() error: %v", err)
			}
			if out[0].X != tt.wantX || out[0].Y != tt.wantY {
				t.Errorf("got (%v,%v), want (%v,%v)", out[0].X, out[0].Y, tt.wantX, tt.wantY)
			}
		})
	}
}

// TestSmootherCountMismatch: a frame with different cardinality than the
// session's first frame must fail fast, not degrade.
func TestSmootherCountMismatch(t *testing.T) {
	s := NewSmoother(0.5, 0.3)
	if _, err := s.Smooth(pose.Pose{kp(1, 1, 0.9), kp(2, 2, 0.9)}); err != nil {
		t.Fatalf("priming frame: %v", err)
	}

	_, err := s.Smooth(pose.Pose{kp(1, 1, 0.9)})
	if !errors.Is(err, ErrKeypointCountMismatch) {
		t.Errorf("got %v, want ErrKeypointCountMismatch", err)
	}
}
