package motion

import (
	"fmt"
	"time"

	"github.com/claude/posetrack/internal/pose"
)

// Axis selects which coordinate of the tracked joints drives the rep
// trajectory.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// CountDirection selects which hysteresis transition completes a repetition.
type CountDirection string

const (
	// CountOnDescent counts when the trajectory leaves the upper band and
	// reaches the lower band (arms lowered after a raise, in normalized
	// image coordinates).
	CountOnDescent CountDirection = "descent"
	// CountOnAscent counts the opposite transition.
	CountOnAscent CountDirection = "ascent"
)

// Config holds the tuning for one tracking session. Everything is supplied
// by the caller at session start; DefaultConfig gives the baseline an
// exercise profile starts from.
type Config struct {
	// SmoothingAlpha weights the previous smoothed position when blending
	// keypoints: 0 passes frames through untouched, 1 freezes on the first
	// frame. The default favors responsiveness over lag.
	SmoothingAlpha float64

	// MinConfidence gates smoothing and rep tracking. Keypoints below it
	// pass through unsmoothed, and the counter idles while any tracked
	// joint is below it.
	MinConfidence float64

	// UpperThreshold and LowerThreshold bound the hysteresis band on the
	// trajectory. Readings between them never change phase.
	UpperThreshold float64
	LowerThreshold float64

	// Cooldown is the minimum dwell after a counted rep before the machine
	// may arm for the next cycle. Bounds the maximum countable rep rate.
	Cooldown time.Duration

	// Joints are the tracked joint names. The configured axis values of
	// all of them are averaged into one trajectory reading.
	Joints []string

	// Axis is the trajectory coordinate, vertical by default.
	Axis Axis

	// CountOn selects the counting transition.
	CountOn CountDirection
}

// DefaultConfig returns the baseline tracking configuration: both wrists on
// the vertical axis in normalized coordinates, counting on descent.
func DefaultConfig() Config {
	return Config{
		SmoothingAlpha: 0.2,
		MinConfidence:  0.3,
		UpperThreshold: 0.6,
		LowerThreshold: 0.4,
		Cooldown:       time.Second,
		Joints:         []string{pose.LeftWrist, pose.RightWrist},
		Axis:           AxisY,
		CountOn:        CountOnDescent,
	}
}

// Validate checks the config before a session starts.
func (c Config) Validate() error {
	if c.SmoothingAlpha < 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing alpha %v outside [0,1]", c.SmoothingAlpha)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence %v outside [0,1]", c.MinConfidence)
	}
	if c.UpperThreshold <= c.LowerThreshold {
		return fmt.Errorf("upper threshold %v must exceed lower threshold %v", c.UpperThreshold, c.LowerThreshold)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown %v must not be negative", c.Cooldown)
	}
	if len(c.Joints) == 0 {
		return fmt.Errorf("no tracked joints configured")
	}
	for _, j := range c.Joints {
		if _, ok := pose.JointIndex(j); !ok {
			return fmt.Errorf("unknown tracked joint %q", j)
		}
	}
	switch c.Axis {
	case AxisX, AxisY:
	default:
		return fmt.Errorf("unknown axis %q", c.Axis)
	}
	switch c.CountOn {
	case CountOnAscent, CountOnDescent:
	default:
		return fmt.Errorf("unknown count direction %q", c.CountOn)
	}
	return nil
}
