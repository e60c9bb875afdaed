package motion

import (
	"errors"
	"fmt"

	"github.com/claude/posetrack/internal/pose"
)

// ErrKeypointCountMismatch reports a frame whose keypoint cardinality differs
// from the session's first frame. The estimator's output layout is fixed for
// the lifetime of a session, so a mismatch is a caller bug and aborts the
// session rather than degrading silently.
var ErrKeypointCountMismatch = errors.New("keypoint count mismatch")

// Smoother applies confidence-gated exponential smoothing to keypoint
// positions. It owns the previous smoothed pose for one session and is not
// safe for concurrent use.
type Smoother struct {
	alpha         float64
	minConfidence float64
	prev          pose.Pose
}

// NewSmoother returns a smoother with no history; the first frame it sees
// primes it.
func NewSmoother(alpha, minConfidence float64) *Smoother {
	return &Smoother{alpha: alpha, minConfidence: minConfidence}
}

// Smooth blends current against the previous smoothed pose and keeps the
// result as the new reference. The first frame of a session passes through
// unchanged. A keypoint is blended only when both its current and previous
// confidence clear the minimum; otherwise the current value passes through,
// since blending with an untrusted point would propagate its error.
// Confidence itself is never smoothed: the output carries the current
// frame's confidence so scoring reacts immediately to detection quality.
func (s *Smoother) Smooth(current pose.Pose) (pose.Pose, error) {
	if s.prev == nil {
		s.prev = current.Clone()
		return current, nil
	}
	if len(current) != len(s.prev) {
		return nil, fmt.Errorf("%w: got %d keypoints, session started with %d",
			ErrKeypointCountMismatch, len(current), len(s.prev))
	}

	out := current.Clone()
	for i := range out {
		if current[i].Confidence >= s.minConfidence && s.prev[i].Confidence >= s.minConfidence {
			out[i].X = s.prev[i].X*s.alpha + current[i].X*(1-s.alpha)
			out[i].Y = s.prev[i].Y*s.alpha + current[i].Y*(1-s.alpha)
		}
	}
	s.prev = out.Clone()
	return out, nil
}
