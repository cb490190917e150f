package websocket

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"rheumactive/internal/microservices/tcp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AngleMessage is pushed to every subscriber when a new frame lands.
type AngleMessage struct {
	Angle     float64   `json:"angle"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"` // time the frame was ingested, UTC
}

// constructor new message from a store snapshot
func NewAngleMessage(snap tcp.Snapshot) *AngleMessage {
	return &AngleMessage{
		Angle:     snap.Angle,
		Seq:       snap.Seq,
		Timestamp: snap.UpdatedAt.UTC(),
	}
}

func (m *AngleMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
