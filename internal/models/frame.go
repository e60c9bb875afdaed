package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claude/posetrack/internal/pose"
)

// frameTimeLayouts are the string timestamp formats capture clients have
// been observed to send, tried in order.
var frameTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
}

// FrameTime accepts the timestamp shapes pose clients actually emit: a JSON
// number carrying Unix milliseconds (performance.now-style clocks mapped to
// epoch), or a timestamp string in one of the known layouts.
type FrameTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler with layout fallbacks.
func (t *FrameTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	if len(s) > 0 && s[0] != '"' {
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing frame timestamp %s: %w", s, err)
		}
		t.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("parsing frame timestamp: %w", err)
	}
	for _, layout := range frameTimeLayouts {
		if parsed, err := time.Parse(layout, str); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized frame timestamp %q", str)
}

// MarshalJSON emits RFC3339 with sub-second precision.
func (t FrameTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// FrameKeypoint mirrors pose.Keypoint on the wire.
type FrameKeypoint struct {
	Name       string  `json:"name,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// FramePayload is one pose frame as sent by a capture client.
type FramePayload struct {
	Timestamp FrameTime       `json:"timestamp"`
	Keypoints []FrameKeypoint `json:"keypoints"`
}

// Pose converts the wire frame to the internal pose type.
func (f FramePayload) Pose() pose.Pose {
	p := make(pose.Pose, len(f.Keypoints))
	for i, kp := range f.Keypoints {
		p[i] = pose.Keypoint{Name: kp.Name, X: kp.X, Y: kp.Y, Confidence: kp.Confidence}
	}
	return p
}

// FrameBatch is the body of a frame ingest request.
type FrameBatch struct {
	Frames []FramePayload `json:"frames"`
}
