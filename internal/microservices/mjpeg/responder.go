// Package mjpeg serves the latest ingested frame as a
// multipart/x-mixed-replace stream, one independent loop per client.
package mjpeg

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rheumactive/internal/microservices/tcp"
)

const (
	Boundary        = "frame"
	ContentType     = "multipart/x-mixed-replace; boundary=" + Boundary
	PartContentType = "image/jpeg"
	DefaultInterval = 50 * time.Millisecond // ~20 chunks per second
)

var eol = []byte("\r\n")

// FrameSource is what the responder reads every tick.
type FrameSource interface {
	Snapshot() tcp.Snapshot
}

type Responder struct {
	Source   FrameSource
	Interval time.Duration
	Logger   *slog.Logger
}

func NewResponder(source FrameSource, interval time.Duration, logger *slog.Logger) *Responder {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Source: source, Interval: interval, Logger: logger}
}

// Serve writes one chunk per tick while a frame is available and never
// returns on its own: only ctx cancellation or a failed write ends it.
// Nothing is written before the first frame has been ingested.
func (r *Responder) Serve(ctx context.Context, w io.Writer) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	flusher, _ := w.(http.Flusher)

	var (
		lastSeq uint64
		jpeg    []byte
	)
	for {
		snap := r.Source.Snapshot()
		if !snap.Empty() {
			// decode once per new frame, reuse the bytes on repeat ticks
			if snap.Seq != lastSeq {
				lastSeq = snap.Seq
				decoded, err := base64.StdEncoding.DecodeString(snap.Image)
				if err != nil {
					r.Logger.Warn("stream_frame_undecodable",
						"seq", snap.Seq,
						"error", err.Error(),
					)
					jpeg = nil
				} else {
					jpeg = decoded
				}
			}
			if jpeg != nil {
				if err := WriteChunk(w, jpeg); err != nil {
					return fmt.Errorf("failed to write stream chunk: %w", err)
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// WriteChunk writes one multipart part: boundary, part headers, blank line,
// the JPEG bytes and a trailing line break.
func WriteChunk(w io.Writer, jpeg []byte) error {
	if len(jpeg) == 0 {
		return errors.New("empty frame")
	}
	buf := make([]byte, 0, len(jpeg)+96)
	buf = append(buf, "--"+Boundary...)
	buf = append(buf, eol...)
	buf = append(buf, "Content-Type: "+PartContentType...)
	buf = append(buf, eol...)
	buf = append(buf, "Content-Length: "...)
	buf = strconv.AppendInt(buf, int64(len(jpeg)), 10)
	buf = append(buf, eol...)
	buf = append(buf, eol...)
	buf = append(buf, jpeg...)
	buf = append(buf, eol...)
	_, err := w.Write(buf)
	return err
}
