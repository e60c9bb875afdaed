package motion

import (
	"math"

	"github.com/claude/posetrack/internal/pose"
)

// Score converts a pose into a 0-100 posture quality score: the mean
// keypoint confidence scaled to percent and rounded. Pure function; a pose
// with all-zero confidence scores 0, never NaN.
func Score(p pose.Pose) int {
	if len(p) == 0 {
		return 0
	}
	s := int(math.Round(p.MeanConfidence() * 100))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
