package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/posetrack/internal/config"
	"github.com/claude/posetrack/internal/replay"
	"github.com/claude/posetrack/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	recordingsPath := flag.String("path", "", "path to recordings directory (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *recordingsPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: posetrack-replay -config config.yaml -path /path/to/recordings [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify recordings directory exists
	info, err := os.Stat(*recordingsPath)
	if err != nil || !info.IsDir() {
		log.Error("recordings path does not exist or is not a directory", "path", *recordingsPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode — no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Run replay
	rp := replay.New(db, cfg.Tracking, log, *dryRun)
	stats, err := rp.Replay(ctx, *recordingsPath)
	if err != nil {
		log.Error("replay failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("replay complete")
}

func printStats(log *slog.Logger, stats *replay.Stats) {
	log.Info("replay stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"frames_read", stats.FramesRead,
		"frames_processed", stats.FramesProcessed,
		"frames_skipped", stats.FramesSkipped,
		"sessions_created", stats.SessionsCreated,
		"sessions_duplicated", stats.SessionsDuplicated,
		"reps_counted", stats.RepsCounted,
	)
	if len(stats.RejectedExercises) > 0 {
		log.Info("rejected exercises (disabled in catalog)", "exercises", stats.RejectedExercises)
	}
}
