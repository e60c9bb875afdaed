package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/posetrack/internal/stream"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "posetrack server URL (e.g. https://posetrack.tail1234.ts.net)")
	recordingsPath := flag.String("path", "", "path to recordings directory")
	apiKey := flag.String("api-key", "", "API key for tracking endpoints (or POSETRACK_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "parse recordings but don't send to server")
	batchSize := flag.Int("batch-size", 100, "frames per batch")
	realtime := flag.Bool("realtime", false, "pace batches by the recorded frame timestamps")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("posetrack-stream", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *recordingsPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: posetrack-stream -server <URL> -path <recordings dir> [-dry-run] [-batch-size N] [-realtime]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	if *apiKey == "" {
		*apiKey = os.Getenv("POSETRACK_API_KEY")
	}
	if *apiKey == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -api-key or POSETRACK_API_KEY is required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*recordingsPath)
	if err != nil || !info.IsDir() {
		log.Error("recordings directory not found", "path", *recordingsPath)
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(homeDir, ".posetrack-stream")

	state, err := stream.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *stream.Client
	if !*dryRun {
		client = stream.NewClient(*serverURL, *apiKey)
	}

	if *dryRun {
		log.Info("DRY RUN mode — recordings will be parsed but not sent")
	}

	streamer := stream.New(client, state, *recordingsPath, *dryRun, *batchSize, *realtime, log)
	stats, err := streamer.Run()
	if err != nil {
		log.Error("stream failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("stream complete")
}

func printStats(stats *stream.Stats) {
	fmt.Println()
	fmt.Println("=== Stream Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files streamed:   %d\n", stats.FilesStreamed)
	fmt.Printf("  Files skipped:    %d (already sent, rejected or empty)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Frames sent:      %d\n", stats.FramesSent)
	fmt.Printf("  Batches sent:     %d\n", stats.BatchesSent)
	fmt.Printf("  Sessions started: %d\n", stats.SessionsStarted)
	fmt.Printf("  Sessions stopped: %d\n", stats.SessionsStopped)

	if len(stats.RejectedExercises) > 0 {
		fmt.Printf("\n  Rejected exercises (disabled in catalog):\n")
		for _, e := range stats.RejectedExercises {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Println()
}
