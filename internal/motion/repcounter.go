package motion

import (
	"fmt"
	"time"

	"github.com/claude/posetrack/internal/pose"
)

// Phase is the rep counter's position in the movement cycle.
type Phase string

const (
	// PhaseIdle means no confident trajectory reading is available. It is
	// the initial phase and is re-entered whenever a tracked joint's
	// confidence drops below the gate.
	PhaseIdle Phase = "idle"
	// PhaseAbove and PhaseBelow are the two stable phases of the cycle,
	// entered when the trajectory clears the upper or lower threshold.
	PhaseAbove Phase = "above"
	PhaseBelow Phase = "below"
)

// RepCounter turns a smoothed joint trajectory into discrete repetition
// events. Two thresholds with a hysteresis gap keep noise near the midline
// from toggling the phase (a single threshold double-counts on jitter), and
// a cooldown after each counted rep bounds the maximum rep rate. Transitions
// are driven only by the trajectory. Owned by one session; not safe for
// concurrent use.
type RepCounter struct {
	cfg           Config
	jointIdx      []int
	phase         Phase
	count         int
	lastChange    time.Time
	cooldownUntil time.Time
}

// NewRepCounter resolves the configured joints and starts the machine idle.
// cfg must have passed Validate.
func NewRepCounter(cfg Config) *RepCounter {
	idx := make([]int, 0, len(cfg.Joints))
	for _, j := range cfg.Joints {
		if i, ok := pose.JointIndex(j); ok {
			idx = append(idx, i)
		}
	}
	return &RepCounter{cfg: cfg, jointIdx: idx, phase: PhaseIdle}
}

// Observe feeds one smoothed pose and reports whether this frame completed a
// repetition. A tracked joint below the confidence gate idles the machine
// for the frame; that is expected input, never an error. A pose too short to
// address a tracked joint is a contract violation.
func (rc *RepCounter) Observe(p pose.Pose, ts time.Time) (bool, error) {
	for _, i := range rc.jointIdx {
		if i >= len(p) {
			return false, fmt.Errorf("%w: tracked joint index %d outside pose of %d keypoints",
				ErrKeypointCountMismatch, i, len(p))
		}
	}

	for _, i := range rc.jointIdx {
		if p[i].Confidence < rc.cfg.MinConfidence {
			if rc.phase != PhaseIdle {
				rc.phase = PhaseIdle
				rc.lastChange = ts
			}
			return false, nil
		}
	}

	value := rc.reading(p)
	switch {
	case value >= rc.cfg.UpperThreshold:
		return rc.enter(PhaseAbove, ts), nil
	case value <= rc.cfg.LowerThreshold:
		return rc.enter(PhaseBelow, ts), nil
	default:
		// Inside the hysteresis band: hold the current phase.
		return false, nil
	}
}

// Count returns the cumulative reps for the session.
func (rc *RepCounter) Count() int { return rc.count }

// Phase returns the current phase.
func (rc *RepCounter) Phase() Phase { return rc.phase }

// LastTransition returns the timestamp of the most recent phase change.
func (rc *RepCounter) LastTransition() time.Time { return rc.lastChange }

// reading averages the configured axis of the tracked joints.
func (rc *RepCounter) reading(p pose.Pose) float64 {
	var sum float64
	for _, i := range rc.jointIdx {
		if rc.cfg.Axis == AxisX {
			sum += p[i].X
		} else {
			sum += p[i].Y
		}
	}
	return sum / float64(len(rc.jointIdx))
}

// armedPhase is the phase a countable cycle departs from.
func (rc *RepCounter) armedPhase() Phase {
	if rc.cfg.CountOn == CountOnAscent {
		return PhaseBelow
	}
	return PhaseAbove
}

// countedPhase is the phase whose entry from the armed phase counts a rep.
func (rc *RepCounter) countedPhase() Phase {
	if rc.cfg.CountOn == CountOnAscent {
		return PhaseAbove
	}
	return PhaseBelow
}

// enter moves the machine toward next. While the cooldown is running the
// machine refuses to re-arm, so a full cycle fused into the dwell window of
// the previous rep cannot count a second time.
func (rc *RepCounter) enter(next Phase, ts time.Time) bool {
	if next == rc.phase {
		return false
	}
	if next == rc.armedPhase() && ts.Before(rc.cooldownUntil) {
		return false
	}

	counted := rc.phase == rc.armedPhase() && next == rc.countedPhase()
	rc.phase = next
	rc.lastChange = ts
	if counted {
		rc.count++
		rc.cooldownUntil = ts.Add(rc.cfg.Cooldown)
	}
	return counted
}
