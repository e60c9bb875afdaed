// Package replay feeds recorded sessions through the tracking pipeline
// offline, storing the finalized rows as if they had been tracked live.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/claude/posetrack/internal/config"
	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/motion"
	"github.com/claude/posetrack/internal/recording"
	"github.com/claude/posetrack/internal/storage"
	"github.com/google/uuid"
)

// replayUserID owns replayed sessions. Replay is single-user, matching the
// dev identity.
const replayUserID = 1

// sampleEvery is the spacing of timeline sample rows, in frame time.
const sampleEvery = time.Second

// Stats tracks replay progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	FramesRead         int
	FramesProcessed    int64
	FramesSkipped      int
	SessionsCreated    int
	SessionsDuplicated int
	RepsCounted        int

	RejectedExercises []string
}

// Replayer reads recording files from a directory and inserts sessions.
type Replayer struct {
	db       *storage.DB
	tracking config.TrackingConfig
	log      *slog.Logger
	dryRun   bool
	stats    Stats
}

// New creates a new Replayer.
func New(db *storage.DB, tracking config.TrackingConfig, log *slog.Logger, dryRun bool) *Replayer {
	return &Replayer{db: db, tracking: tracking, log: log, dryRun: dryRun}
}

// Replay processes every recording under dir and records the outcome in
// replay_logs.
func (rp *Replayer) Replay(ctx context.Context, dir string) (*Stats, error) {
	started := time.Now()

	var logID int64
	if !rp.dryRun {
		meta, _ := json.Marshal(map[string]any{"dir": dir})
		rawMeta := json.RawMessage(meta)
		id, err := rp.db.InsertReplayLog(ctx, storage.ReplayLog{
			UserID:   replayUserID,
			Source:   "recordings",
			Status:   "running",
			Metadata: &rawMeta,
		})
		if err != nil {
			rp.log.Error("creating replay log", "error", err)
		}
		logID = id
	}

	replayErr := rp.replayDir(ctx, dir)

	if logID != 0 {
		rp.finalizeLog(logID, started, replayErr)
	}

	return &rp.stats, replayErr
}

func (rp *Replayer) replayDir(ctx context.Context, dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && recording.IsRecordingFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)

	rejected := map[string]bool{}
	for _, f := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := rp.replayFile(ctx, f, rejected); err != nil {
			return err
		}
	}
	return nil
}

// replayFile runs one recording through a fresh pipeline. Unreadable or
// unrecognized files are counted and skipped; database failures abort the
// whole replay.
func (rp *Replayer) replayFile(ctx context.Context, path string, rejected map[string]bool) error {
	rec, err := recording.Open(path)
	if err != nil {
		rp.log.Warn("unreadable recording", "file", path, "error", err)
		rp.stats.FilesErrored++
		return nil
	}

	rp.stats.FramesRead += len(rec.Frames) + rec.SkippedLines
	rp.stats.FramesSkipped += rec.SkippedLines

	exercise, known := models.NormalizeExerciseType(rec.Header.Exercise)
	if !known {
		rp.log.Warn("unknown exercise in recording", "file", path, "exercise", rec.Header.Exercise)
		rp.stats.FilesSkipped++
		return nil
	}

	enabled, err := rp.db.IsExerciseEnabled(ctx, exercise)
	if err != nil {
		return fmt.Errorf("checking catalog for %s: %w", exercise, err)
	}
	if !enabled {
		if !rejected[exercise] {
			rp.stats.RejectedExercises = append(rp.stats.RejectedExercises, exercise)
			rejected[exercise] = true
		}
		rp.log.Info("skipping recording (exercise disabled)", "file", path, "exercise", exercise)
		rp.stats.FilesSkipped++
		return nil
	}

	if len(rec.Frames) == 0 {
		rp.stats.FilesSkipped++
		return nil
	}

	row, samples, err := rp.runPipeline(exercise, rec)
	if err != nil {
		rp.log.Warn("replay failed", "file", path, "error", err)
		rp.stats.FilesErrored++
		return nil
	}
	if row == nil {
		rp.stats.FilesSkipped++
		return nil
	}

	rp.stats.FilesProcessed++
	if rp.dryRun {
		rp.stats.SessionsCreated++
		rp.stats.RepsCounted += row.Reps
		return nil
	}

	inserted, err := rp.db.InsertSession(ctx, *row)
	if err != nil {
		return fmt.Errorf("inserting session from %s: %w", filepath.Base(path), err)
	}
	if !inserted {
		rp.stats.SessionsDuplicated++
		return nil
	}
	rp.stats.SessionsCreated++
	rp.stats.RepsCounted += row.Reps

	if len(samples) > 0 {
		if _, err := rp.db.InsertSessionSamples(ctx, samples); err != nil {
			return fmt.Errorf("inserting samples from %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// runPipeline replays the recording's frames through a fresh pipeline and
// returns the finalized row plus its timeline samples. Frames that fail
// validation are dropped and counted. Returns a nil row when no frame
// survived.
func (rp *Replayer) runPipeline(exercise string, rec *recording.Recording) (*models.SessionRow, []models.SessionSampleRow, error) {
	pipeline, err := motion.NewPipeline(exercise, rp.tracking.Resolve(exercise), motion.Callbacks{})
	if err != nil {
		return nil, nil, err
	}

	id := sessionID(exercise, rec)
	var samples []models.SessionSampleRow
	var lastSample, lastTS time.Time
	processed := 0

	for _, frame := range rec.Frames {
		p := frame.Pose()
		if err := p.Validate(); err != nil {
			rp.stats.FramesSkipped++
			continue
		}
		ts := frame.Timestamp.Time
		if ts.IsZero() {
			// A recorded frame without a timestamp cannot be replayed on
			// the frame clock.
			rp.stats.FramesSkipped++
			continue
		}

		result, err := pipeline.ProcessFrame(p, ts)
		if err != nil {
			rp.stats.FramesSkipped++
			continue
		}
		processed++
		lastTS = ts
		rp.stats.FramesProcessed++

		if lastSample.IsZero() || ts.Sub(lastSample) >= sampleEvery {
			samples = append(samples, models.SessionSampleRow{
				SessionID:    id,
				UserID:       replayUserID,
				Time:         ts,
				PostureScore: result.Score,
				RepCount:     result.RepCount,
				Phase:        string(result.Phase),
			})
			lastSample = ts
		}
	}

	if processed == 0 {
		return nil, nil, nil
	}

	m, err := pipeline.Finalize(lastTS)
	if err != nil {
		return nil, nil, err
	}

	row := models.SessionRow{
		ID:              id,
		UserID:          replayUserID,
		ExerciseType:    m.ExerciseType,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
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
		Source:          models.SourceReplay,
	}
	if rec.Header.Notes != "" {
		notes := rec.Header.Notes
		row.Notes = &notes
	}
	return &row, samples, nil
}

// sessionID derives a stable ID from the recording's identity so replaying
// the same file twice lands on the session insert's conflict guard instead
// of creating a duplicate row.
func sessionID(exercise string, rec *recording.Recording) uuid.UUID {
	firstTS := ""
	if len(rec.Frames) > 0 {
		firstTS = rec.Frames[0].Timestamp.UTC().Format(time.RFC3339Nano)
	}
	seed := fmt.Sprintf("%s|%s|%s|%d",
		exercise,
		rec.Header.StartedAt.UTC().Format(time.RFC3339Nano),
		firstTS,
		len(rec.Frames),
	)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// finalizeLog updates the replay_logs row with final results.
func (rp *Replayer) finalizeLog(logID int64, started time.Time, replayErr error) {
	durationMs := int(time.Since(started).Milliseconds())
	status := "success"
	var errMsg *string
	if replayErr != nil {
		status = "error"
		msg := replayErr.Error()
		errMsg = &msg
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filesRead := rp.stats.FilesProcessed + rp.stats.FilesSkipped + rp.stats.FilesErrored
	if err := rp.db.UpdateReplayLog(ctx, logID, storage.ReplayLog{
		Status:          status,
		FilesRead:       filesRead,
		FramesRead:      rp.stats.FramesRead,
		FramesProcessed: rp.stats.FramesProcessed,
		SessionsCreated: rp.stats.SessionsCreated,
		RepsCounted:     rp.stats.RepsCounted,
		DurationMs:      &durationMs,
		ErrorMessage:    errMsg,
	}); err != nil {
		rp.log.Error("finalizing replay log", "log_id", logID, "error", err)
	}
}
