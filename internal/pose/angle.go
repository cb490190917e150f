package pose

import "math"

// Angle returns the angle at p2 formed by p1-p2-p3 in degrees, in [0, 180].
// Degenerate input (a zero-length limb) yields 0.
func Angle(p1, p2, p3 Keypoint) float64 {
	v1x, v1y := p1.X-p2.X, p1.Y-p2.Y
	v2x, v2y := p3.X-p2.X, p3.Y-p2.Y
	norm := math.Hypot(v1x, v1y) * math.Hypot(v2x, v2y)
	if norm == 0 {
		return 0
	}
	cos := (v1x*v2x + v1y*v2y) / norm
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// JointAngle measures j on s, rounded to one decimal. ok is false when any of
// the three keypoints is below MinConfidence.
func JointAngle(s Skeleton, j Joint) (angle float64, ok bool) {
	a, b, c := s[j.Proximal], s[j.Vertex], s[j.Distal]
	if !a.Visible() || !b.Visible() || !c.Visible() {
		return 0, false
	}
	return Round1(Angle(a, b, c)), true
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
