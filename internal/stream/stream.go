// Package stream sends on-disk session recordings to a posetrack server
// through the live tracking API, as if a capture client were replaying them.
// A local SQLite state database remembers what was already sent, so the tool
// can run repeatedly over the same recordings directory.
package stream

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/recording"
)

// maxPause caps the sleep between paced batches so long idle stretches in a
// recording do not stall the stream.
const maxPause = 5 * time.Second

// Stats tracks stream progress.
type Stats struct {
	FilesTotal    int
	FilesStreamed int
	FilesSkipped  int
	FilesErrored  int

	FramesSent      int
	BatchesSent     int
	SessionsStarted int
	SessionsStopped int

	RejectedExercises []string
}

// Streamer walks a recordings directory, checks each file against the state
// database, and streams new recordings through the server's session API.
type Streamer struct {
	client    *Client
	state     *StateDB
	dir       string
	dryRun    bool
	batchSize int
	realtime  bool
	log       *slog.Logger
	stats     Stats
}

// New creates a new Streamer.
func New(client *Client, state *StateDB, dir string, dryRun bool, batchSize int, realtime bool, log *slog.Logger) *Streamer {
	return &Streamer{
		client:    client,
		state:     state,
		dir:       dir,
		dryRun:    dryRun,
		batchSize: batchSize,
		realtime:  realtime,
		log:       log,
	}
}

// Run executes the stream pipeline.
func (u *Streamer) Run() (*Stats, error) {
	// Fetch the exercise catalog from the server (skip in dry-run — accept all)
	var enabled map[string]bool
	if !u.dryRun {
		var err error
		enabled, err = u.client.FetchExercises()
		if err != nil {
			return &u.stats, fmt.Errorf("fetching exercise catalog: %w", err)
		}
		u.log.Info("fetched exercise catalog", "enabled", len(enabled))
	}

	if last, err := u.state.GetSyncState("last_stream_run"); err == nil && last != "" {
		u.log.Info("previous stream run", "at", last)
	}

	var files []string
	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && recording.IsRecordingFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("scanning %s: %w", u.dir, err)
	}
	sort.Strings(files)

	rejectedSet := map[string]bool{}
	for _, f := range files {
		u.stats.FilesTotal++
		if err := u.streamFile(f, enabled, rejectedSet); err != nil {
			return &u.stats, err
		}
	}

	if !u.dryRun {
		now := time.Now().UTC().Format(time.RFC3339)
		if err := u.state.SetSyncState("last_stream_run", now); err != nil {
			u.log.Warn("failed to save sync state", "error", err)
		}
	}

	return &u.stats, nil
}

// streamFile sends a single recording as one live session. Unreadable files
// are warned about and counted; transport errors abort the run.
func (u *Streamer) streamFile(path string, enabled map[string]bool, rejectedSet map[string]bool) error {
	relPath, _ := filepath.Rel(u.dir, path)

	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	streamed, err := u.state.IsStreamed(relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if streamed {
		u.stats.FilesSkipped++
		return nil
	}

	rec, err := recording.Open(path)
	if err != nil {
		u.log.Warn("unreadable recording", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	exercise, known := models.NormalizeExerciseType(rec.Header.Exercise)
	if !known {
		u.log.Warn("unknown exercise in recording", "file", path, "exercise", rec.Header.Exercise)
		u.stats.FilesSkipped++
		return nil
	}

	// Check the server catalog (nil in dry-run)
	if enabled != nil && !enabled[exercise] {
		if !rejectedSet[exercise] {
			u.stats.RejectedExercises = append(u.stats.RejectedExercises, exercise)
			rejectedSet[exercise] = true
		}
		u.stats.FilesSkipped++
		return nil
	}

	if len(rec.Frames) == 0 {
		u.stats.FilesSkipped++
		// Mark empty files as streamed so we don't re-check them
		if !u.dryRun {
			_ = u.state.MarkStreamed(relPath, info.Size(), hash)
		}
		return nil
	}

	batches := (len(rec.Frames) + u.batchSize - 1) / u.batchSize

	if u.dryRun {
		u.log.Info("dry-run: would stream",
			"file", relPath,
			"exercise", exercise,
			"frames", len(rec.Frames),
			"batches", batches,
		)
		u.stats.FramesSent += len(rec.Frames)
		u.stats.BatchesSent += batches
		u.stats.FilesStreamed++
		return nil
	}

	id, err := u.client.StartSession(exercise)
	if err != nil {
		return fmt.Errorf("starting session for %s: %w", relPath, err)
	}
	u.stats.SessionsStarted++

	var lastSent time.Time
	for i := 0; i < len(rec.Frames); i += u.batchSize {
		end := i + u.batchSize
		if end > len(rec.Frames) {
			end = len(rec.Frames)
		}
		batch := rec.Frames[i:end]

		if u.realtime && !lastSent.IsZero() {
			pause(batch[0].Timestamp.Time.Sub(lastSent))
		}
		lastSent = batch[len(batch)-1].Timestamp.Time

		if err := u.client.SendFrames(id, models.FrameBatch{Frames: batch}); err != nil {
			return fmt.Errorf("sending frames for %s: %w", relPath, err)
		}
		u.stats.FramesSent += len(batch)
		u.stats.BatchesSent++
	}

	if err := u.client.StopSession(id, rec.Header.Notes); err != nil {
		return fmt.Errorf("stopping session for %s: %w", relPath, err)
	}
	u.stats.SessionsStopped++

	if err := u.state.MarkStreamed(relPath, info.Size(), hash); err != nil {
		u.log.Warn("failed to mark streamed", "file", relPath, "error", err)
	}
	u.stats.FilesStreamed++

	u.log.Info("streamed recording",
		"file", relPath,
		"exercise", exercise,
		"frames", len(rec.Frames),
		"batches", batches,
	)

	return nil
}

// pause sleeps for the recorded gap between batches, at most maxPause.
func pause(gap time.Duration) {
	if gap <= 0 {
		return
	}
	if gap > maxPause {
		gap = maxPause
	}
	time.Sleep(gap)
}
