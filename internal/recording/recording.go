// Package recording reads and writes on-disk pose session recordings.
//
// A recording is a text file: one JSON header line followed by one JSON
// frame per line. Files may be gzip-compressed, marked by a .gz suffix.
package recording

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/claude/posetrack/internal/models"
)

const (
	// FormatVersion is the highest header version this package understands.
	FormatVersion = 1

	// Ext and ExtGz are the recognized recording file suffixes.
	Ext   = ".jsonl"
	ExtGz = ".jsonl.gz"

	// maxLineBytes bounds a single frame line. A 17-keypoint frame is
	// around a kilobyte, so this leaves generous headroom.
	maxLineBytes = 1 << 20
)

// Header is the first line of a recording file.
type Header struct {
	Version   int       `json:"version"`
	Exercise  string    `json:"exercise"`
	StartedAt time.Time `json:"started_at"`
	Device    string    `json:"device,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Recording is a fully parsed recording file.
type Recording struct {
	Header Header
	Frames []models.FramePayload

	// SkippedLines counts frame lines that failed to parse and were dropped.
	SkippedLines int
}

// IsRecordingFile reports whether name looks like a recording file.
func IsRecordingFile(name string) bool {
	return strings.HasSuffix(name, Ext) || strings.HasSuffix(name, ExtGz)
}

// Open reads the recording at path, transparently decompressing .gz files.
func Open(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip recording %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return Read(r)
}

// Read parses a recording from r. The header line must parse; frame lines
// that do not are counted in SkippedLines and dropped, so one corrupt line
// does not lose a whole session.
func Read(r io.Reader) (*Recording, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	rec := &Recording{}
	haveHeader := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !haveHeader {
			if err := json.Unmarshal([]byte(line), &rec.Header); err != nil {
				return nil, fmt.Errorf("parsing recording header: %w", err)
			}
			if rec.Header.Version > FormatVersion {
				return nil, fmt.Errorf("unsupported recording version %d", rec.Header.Version)
			}
			haveHeader = true
			continue
		}

		var frame models.FramePayload
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			rec.SkippedLines++
			continue
		}
		rec.Frames = append(rec.Frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}
	if !haveHeader {
		return nil, fmt.Errorf("recording has no header line")
	}
	return rec, nil
}

// Writer streams a recording to disk, one frame per line.
type Writer struct {
	file *os.File
	gz   *gzip.Writer
	enc  *json.Encoder
}

// Create opens path, writes the header line and returns a Writer for
// appending frames. A .gz suffix enables compression.
func Create(path string, h Header) (*Writer, error) {
	if h.Version == 0 {
		h.Version = FormatVersion
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}

	w := &Writer{file: f}
	var out io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		w.gz = gzip.NewWriter(f)
		out = w.gz
	}
	w.enc = json.NewEncoder(out)

	if err := w.enc.Encode(h); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing recording header: %w", err)
	}
	return w, nil
}

// WriteFrame appends one frame line.
func (w *Writer) WriteFrame(frame models.FramePayload) error {
	return w.enc.Encode(frame)
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			w.file.Close()
			return err
		}
	}
	return w.file.Close()
}
