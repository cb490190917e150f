package pose

import (
	"math"
	"time"
)

// MockEstimator produces a plausible skeleton without a model: a fixed upper
// body with the distal limb of the tracked joint swinging back and forth.
type MockEstimator struct {
	Width, Height float64
	Period        time.Duration // one full flex/extend cycle
	MinAngle      float64
	MaxAngle      float64
}

func NewMockEstimator(width, height int) *MockEstimator {
	return &MockEstimator{
		Width:    float64(width),
		Height:   float64(height),
		Period:   4 * time.Second,
		MinAngle: 30,
		MaxAngle: 160,
	}
}

// base pose, as fractions of the frame
var basePose = [NumKeypoints][2]float64{
	Nose:          {0.50, 0.15},
	LeftEye:       {0.48, 0.13},
	RightEye:      {0.52, 0.13},
	LeftEar:       {0.46, 0.14},
	RightEar:      {0.54, 0.14},
	LeftShoulder:  {0.30, 0.40},
	RightShoulder: {0.62, 0.30},
	LeftElbow:     {0.50, 0.50},
	RightElbow:    {0.70, 0.45},
	LeftWrist:     {0.40, 0.70},
	RightWrist:    {0.72, 0.60},
	LeftHip:       {0.42, 0.62},
	RightHip:      {0.58, 0.62},
	LeftKnee:      {0.41, 0.78},
	RightKnee:     {0.59, 0.78},
	LeftAnkle:     {0.40, 0.95},
	RightAnkle:    {0.60, 0.95},
}

// Estimate returns the skeleton at elapsed time t for joint j.
func (m *MockEstimator) Estimate(t time.Duration, j Joint) Skeleton {
	var s Skeleton
	for i, p := range basePose {
		s[i] = Keypoint{X: p[0] * m.Width, Y: p[1] * m.Height, Score: 0.95}
	}

	// target angle follows a cosine between MinAngle and MaxAngle
	phase := 0.0
	if m.Period > 0 {
		phase = 2 * math.Pi * float64(t%m.Period) / float64(m.Period)
	}
	mid := (m.MaxAngle + m.MinAngle) / 2
	amp := (m.MaxAngle - m.MinAngle) / 2
	target := (mid + amp*math.Cos(phase)) * math.Pi / 180

	// rotate the distal point around the vertex so the angle hits target
	prox, vert, dist := s[j.Proximal], s[j.Vertex], s[j.Distal]
	limb := math.Hypot(dist.X-vert.X, dist.Y-vert.Y)
	if limb == 0 {
		return s
	}
	ref := math.Atan2(prox.Y-vert.Y, prox.X-vert.X)
	s[j.Distal].X = vert.X + limb*math.Cos(ref+target)
	s[j.Distal].Y = vert.Y + limb*math.Sin(ref+target)
	return s
}
