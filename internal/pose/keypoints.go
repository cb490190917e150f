// Package pose holds the joint-angle math and a mock estimator that stands in
// for the on-device keypoint model.
package pose

import (
	"fmt"
	"sort"
	"strings"
)

// COCO 17-keypoint layout, as emitted by YOLOv8-Pose style models.
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	NumKeypoints
)

// MinConfidence is the score below which a keypoint is neither drawn nor measured.
const MinConfidence = 0.5

type Keypoint struct {
	X, Y  float64
	Score float64
}

func (k Keypoint) Visible() bool {
	return k.Score > MinConfidence
}

type Skeleton [NumKeypoints]Keypoint

// Joint names a measured angle: the angle at Vertex between Proximal and Distal.
type Joint struct {
	Name     string
	Proximal int
	Vertex   int
	Distal   int
}

var joints = map[string]Joint{
	"left_elbow":     {"left_elbow", LeftShoulder, LeftElbow, LeftWrist},
	"right_elbow":    {"right_elbow", RightShoulder, RightElbow, RightWrist},
	"left_knee":      {"left_knee", LeftHip, LeftKnee, LeftAnkle},
	"right_knee":     {"right_knee", RightHip, RightKnee, RightAnkle},
	"left_shoulder":  {"left_shoulder", LeftHip, LeftShoulder, LeftElbow},
	"right_shoulder": {"right_shoulder", RightHip, RightShoulder, RightElbow},
	"left_hip":       {"left_hip", LeftShoulder, LeftHip, LeftKnee},
	"right_hip":      {"right_hip", RightShoulder, RightHip, RightKnee},
}

// DefaultJoint is tracked until a start_video command names another one.
const DefaultJoint = "left_elbow"

// LookupJoint accepts "left_elbow", "Left Elbow" or a bare "elbow" (left side).
func LookupJoint(name string) (Joint, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if j, ok := joints[key]; ok {
		return j, nil
	}
	if j, ok := joints["left_"+key]; ok {
		return j, nil
	}
	return Joint{}, fmt.Errorf("unknown joint %q", name)
}

// JointNames lists every supported joint, sorted.
func JointNames() []string {
	names := make([]string, 0, len(joints))
	for name := range joints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
