package tcp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"

	jsoniter "github.com/json-iterator/go"
)

// wire format: 4-byte big-endian payload length, then a UTF-8 JSON object
// {"image": <base64 jpeg>, "angle": <degrees>}

const HeaderSize = 4

const DefaultMaxMessageSize = 16 * 1024 * 1024 // 16MB max payload size

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrTruncatedMessage = errors.New("truncated message")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrMessageTooLarge  = errors.New("message too large")
	ErrNonFiniteAngle   = errors.New("angle is not a finite number")
)

// FrameRecord is one capture cycle of the producer. Image holds the
// transport encoding (standard base64) of the JPEG bytes.
type FrameRecord struct {
	Image string  `json:"image"`
	Angle float64 `json:"angle"`
}

// pointer fields let Decode tell a missing field from a zero value
type framePayload struct {
	Image *string  `json:"image"`
	Angle *float64 `json:"angle"`
}

// Encode serializes rec and prepends its length prefix.
func Encode(rec FrameRecord) ([]byte, error) {
	if math.IsNaN(rec.Angle) || math.IsInf(rec.Angle, 0) {
		return nil, ErrNonFiniteAngle
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame record: %w", err)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, ErrMessageTooLarge
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[:HeaderSize], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Decode reads exactly one message from r.
//
// It returns io.EOF when the stream ends before the first header byte, which
// means the peer closed between messages. A stream that ends anywhere after
// that yields ErrTruncatedMessage. A maxSize of 0 disables the size guard.
func Decode(r io.Reader, maxSize uint32) (FrameRecord, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return FrameRecord{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return FrameRecord{}, fmt.Errorf("%w: header cut short", ErrTruncatedMessage)
		}
		return FrameRecord{}, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if maxSize > 0 && length > maxSize {
		return FrameRecord{}, fmt.Errorf("%w: %d bytes announced, limit %d", ErrMessageTooLarge, length, maxSize)
	}

	payload := make([]byte, length)
	if n, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return FrameRecord{}, fmt.Errorf("%w: got %d of %d payload bytes", ErrTruncatedMessage, n, length)
		}
		return FrameRecord{}, err
	}

	return parsePayload(payload)
}

func parsePayload(payload []byte) (FrameRecord, error) {
	if len(payload) == 0 {
		return FrameRecord{}, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	var p framePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return FrameRecord{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Image == nil {
		return FrameRecord{}, fmt.Errorf("%w: missing image", ErrMalformedPayload)
	}
	if p.Angle == nil {
		return FrameRecord{}, fmt.Errorf("%w: missing angle", ErrMalformedPayload)
	}
	return FrameRecord{Image: *p.Image, Angle: *p.Angle}, nil
}

// Decoder reads consecutive messages from a connection through one buffer.
type Decoder struct {
	reader  *bufio.Reader
	maxSize uint32
}

func NewDecoder(r io.Reader, maxSize uint32) *Decoder {
	return &Decoder{
		reader:  bufio.NewReaderSize(r, 64*1024),
		maxSize: maxSize,
	}
}

func (d *Decoder) Decode() (FrameRecord, error) {
	return Decode(d.reader, d.maxSize)
}

// IsClosedConnError reports errors that only mean the socket was closed
// locally, typically during shutdown.
func IsClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
