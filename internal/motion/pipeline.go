package motion

import (
	"fmt"
	"time"

	"github.com/claude/posetrack/internal/pose"
)

// Callbacks are the optional per-frame notification hooks for a live
// consumer. OnPostureUpdate fires once per processed frame. OnRepCount fires
// only when the count changes and is monotonically non-decreasing within a
// session.
type Callbacks struct {
	OnPostureUpdate func(score int)
	OnRepCount      func(count int)
}

// FrameResult is the outcome of processing one frame.
type FrameResult struct {
	Score      int   `json:"score"`
	RepCount   int   `json:"repCount"`
	RepCounted bool  `json:"repCounted"`
	Phase      Phase `json:"phase"`
}

// Pipeline wires the smoother, scorer, rep counter and aggregator for one
// session. Frames must arrive synchronously and in order: the smoother and
// counter are stateful across frames, so reordering corrupts both. Per-frame
// work does no I/O and is bounded; the caller owns the frame cadence and
// cancellation. All state is exclusively owned, one Pipeline per session.
type Pipeline struct {
	cfg       Config
	smoother  *Smoother
	counter   *RepCounter
	agg       *Aggregator
	callbacks Callbacks
}

// NewPipeline validates cfg and assembles a fresh per-session pipeline.
func NewPipeline(exercise string, cfg Config, cb Callbacks) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tracking config: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		smoother:  NewSmoother(cfg.SmoothingAlpha, cfg.MinConfidence),
		counter:   NewRepCounter(cfg),
		agg:       NewAggregator(exercise),
		callbacks: cb,
	}, nil
}

// ProcessFrame runs one pose through smoothing, scoring and rep detection,
// then folds the outputs into the session metrics.
func (pl *Pipeline) ProcessFrame(p pose.Pose, ts time.Time) (FrameResult, error) {
	smoothed, err := pl.smoother.Smooth(p)
	if err != nil {
		return FrameResult{}, err
	}

	score := Score(smoothed)
	counted, err := pl.counter.Observe(smoothed, ts)
	if err != nil {
		return FrameResult{}, err
	}

	if err := pl.agg.OnFrame(FrameStats{
		Score:      score,
		RepCounted: counted,
		RepCount:   pl.counter.Count(),
		Confident:  smoothed.MeanConfidence() >= pl.cfg.MinConfidence,
		Timestamp:  ts,
	}); err != nil {
		return FrameResult{}, err
	}

	if pl.callbacks.OnPostureUpdate != nil {
		pl.callbacks.OnPostureUpdate(score)
	}
	if counted && pl.callbacks.OnRepCount != nil {
		pl.callbacks.OnRepCount(pl.counter.Count())
	}

	return FrameResult{
		Score:      score,
		RepCount:   pl.counter.Count(),
		RepCounted: counted,
		Phase:      pl.counter.Phase(),
	}, nil
}

// Finalize closes the session at end and returns its metrics. Safe to call
// at any frame boundary, including before any frame; a second call is a
// contract violation.
func (pl *Pipeline) Finalize(end time.Time) (SessionMetrics, error) {
	return pl.agg.Finalize(end)
}

// RepCount returns the cumulative rep count.
func (pl *Pipeline) RepCount() int { return pl.counter.Count() }

// Phase returns the rep counter's current phase.
func (pl *Pipeline) Phase() Phase { return pl.counter.Phase() }

// Frames returns the number of frames processed so far.
func (pl *Pipeline) Frames() int { return pl.agg.Frames() }

// LastFrame returns the timestamp of the most recent frame.
func (pl *Pipeline) LastFrame() time.Time { return pl.agg.LastFrame() }
