package pose

import "fmt"

// Keypoint is one estimated body landmark: a position in the model's
// coordinate space plus the model's confidence in [0,1].
type Keypoint struct {
	Name       string  `json:"name,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Pose is the full keypoint set for one frame. Order is positional: index i
// refers to the same joint on every frame of a session, so consumers resolve
// joints to indices once and address them by index afterwards.
type Pose []Keypoint

// Canonical COCO-17 joint names, in model output order (MoveNet family).
const (
	Nose          = "nose"
	LeftEye       = "left_eye"
	RightEye      = "right_eye"
	LeftEar       = "left_ear"
	RightEar      = "right_ear"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

// CocoNames lists the 17 COCO joints in model output order.
var CocoNames = []string{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftHip, RightHip,
	LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

var cocoIndex = func() map[string]int {
	m := make(map[string]int, len(CocoNames))
	for i, n := range CocoNames {
		m[n] = i
	}
	return m
}()

// JointIndex returns the positional index of a canonical joint name, or
// false if the name is not a COCO-17 joint.
func JointIndex(name string) (int, bool) {
	i, ok := cocoIndex[name]
	return i, ok
}

// Validate checks the frame-level invariants the pipeline depends on: a
// non-empty keypoint set and every confidence within [0,1].
func (p Pose) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("pose has no keypoints")
	}
	for i, kp := range p {
		if kp.Confidence < 0 || kp.Confidence > 1 {
			return fmt.Errorf("keypoint %d (%s): confidence %v outside [0,1]", i, kp.Name, kp.Confidence)
		}
	}
	return nil
}

// Clone returns an independent copy of p.
func (p Pose) Clone() Pose {
	out := make(Pose, len(p))
	copy(out, p)
	return out
}

// MeanConfidence returns the mean keypoint confidence, or 0 for an empty pose.
func (p Pose) MeanConfidence() float64 {
	if len(p) == 0 {
		return 0
	}
	var sum float64
	for _, kp := range p {
		sum += kp.Confidence
	}
	return sum / float64(len(p))
}
