package motion

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrSessionClosed reports use of an aggregator after Finalize.
var ErrSessionClosed = errors.New("session already finalized")

// scoreHistoryCap bounds the retained per-frame scores. Only the percentile
// summary needs history; the mean is incremental. When full, the oldest
// sample is dropped.
const scoreHistoryCap = 1024

// FrameStats carries one processed frame's outputs into the aggregator.
type FrameStats struct {
	Score      int
	RepCounted bool
	RepCount   int
	Confident  bool
	Timestamp  time.Time
}

// SessionMetrics is the finalized record handed to storage when a session
// ends. Score fields are nil when the session processed no frames, keeping
// "no data" distinguishable from "poor posture".
type SessionMetrics struct {
	ExerciseType    string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int
	Reps            int
	Accuracy        *int
	PostureScore    *int
	ScoreP50        *float64
	ScoreP95        *float64
	ScoreMin        *int
	ScoreMax        *int
	Frames          int
	ConfidentFrames int
	Notes           string
}

// Aggregator folds per-frame stats into running session metrics. One per
// session, finalized exactly once.
type Aggregator struct {
	exercise string

	frames          int
	confidentFrames int
	meanScore       float64
	scoreMin        int
	scoreMax        int
	history         []float64
	reps            int
	firstFrame      time.Time
	lastFrame       time.Time
	finalized       bool
}

// NewAggregator returns an open aggregator for one session.
func NewAggregator(exercise string) *Aggregator {
	return &Aggregator{exercise: exercise}
}

// OnFrame folds one frame into the running metrics. Calling it after
// Finalize is a contract violation.
func (a *Aggregator) OnFrame(fs FrameStats) error {
	if a.finalized {
		return fmt.Errorf("recording frame: %w", ErrSessionClosed)
	}

	if a.frames == 0 {
		a.firstFrame = fs.Timestamp
		a.scoreMin = fs.Score
		a.scoreMax = fs.Score
	}
	a.frames++
	a.lastFrame = fs.Timestamp

	// Incremental mean, no history buffer needed.
	a.meanScore += (float64(fs.Score) - a.meanScore) / float64(a.frames)

	if fs.Score < a.scoreMin {
		a.scoreMin = fs.Score
	}
	if fs.Score > a.scoreMax {
		a.scoreMax = fs.Score
	}
	if fs.Confident {
		a.confidentFrames++
	}

	a.history = append(a.history, float64(fs.Score))
	if len(a.history) > scoreHistoryCap {
		a.history = a.history[1:]
	}

	a.reps = fs.RepCount
	return nil
}

// Frames returns the number of frames folded in so far.
func (a *Aggregator) Frames() int { return a.frames }

// LastFrame returns the timestamp of the most recent frame, zero before the
// first one.
func (a *Aggregator) LastFrame() time.Time { return a.lastFrame }

// Finalize closes the aggregator and returns the session record. Duration
// runs from the first frame to end; a session that saw no frames reports
// zero duration and absent score fields. Finalize is one-shot: a second call
// is a contract violation.
func (a *Aggregator) Finalize(end time.Time) (SessionMetrics, error) {
	if a.finalized {
		return SessionMetrics{}, fmt.Errorf("finalizing session: %w", ErrSessionClosed)
	}
	a.finalized = true

	m := SessionMetrics{
		ExerciseType:    a.exercise,
		StartedAt:       end,
		EndedAt:         end,
		Reps:            a.reps,
		Frames:          a.frames,
		ConfidentFrames: a.confidentFrames,
	}
	if a.frames == 0 {
		return m, nil
	}

	m.StartedAt = a.firstFrame
	m.DurationSeconds = int(math.Round(end.Sub(a.firstFrame).Seconds()))

	score := int(math.Round(a.meanScore))
	m.PostureScore = &score
	acc := int(math.Round(float64(a.confidentFrames) / float64(a.frames) * 100))
	m.Accuracy = &acc
	mn, mx := a.scoreMin, a.scoreMax
	m.ScoreMin = &mn
	m.ScoreMax = &mx

	sorted := append([]float64(nil), a.history...)
	sort.Float64s(sorted)
	p50 := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)
	m.ScoreP50 = &p50
	m.ScoreP95 = &p95

	return m, nil
}
