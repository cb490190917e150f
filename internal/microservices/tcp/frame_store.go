package tcp

import (
	"sync"
	"time"
)

// Snapshot is the content of a FrameStore at one instant. The zero value is
// the empty sentinel returned before the first publish.
type Snapshot struct {
	Image     string
	Angle     float64
	Seq       uint64 // increments once per publish, 0 means empty
	UpdatedAt time.Time
}

func (s Snapshot) Empty() bool {
	return s.Image == ""
}

// FrameStore holds the most recently ingested frame. It has one writer (the
// ingest listener) and any number of readers; the lock only covers the copy.
type FrameStore struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

func NewFrameStore() *FrameStore {
	return &FrameStore{now: time.Now}
}

// Publish replaces the stored frame with rec as one unit and returns the new snapshot.
func (s *FrameStore) Publish(rec FrameRecord) Snapshot {
	ts := s.now()
	s.mu.Lock()
	s.snap = Snapshot{
		Image:     rec.Image,
		Angle:     rec.Angle,
		Seq:       s.snap.Seq + 1,
		UpdatedAt: ts,
	}
	snap := s.snap
	s.mu.Unlock()
	return snap
}

func (s *FrameStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Angle is a shortcut for pollers that do not need the image.
func (s *FrameStore) Angle() float64 {
	return s.Snapshot().Angle
}
