// Package streamer is the producer side: it renders annotated frames from the
// pose estimator and pushes them over the link at a fixed rate.
package streamer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rheumactive/internal/microservices/tcp"
	"rheumactive/internal/pose"
)

// FrameSender is the outbound half of the producer link.
type FrameSender interface {
	Send(rec tcp.FrameRecord) error
}

type Estimator interface {
	Estimate(t time.Duration, j pose.Joint) pose.Skeleton
}

type Renderer interface {
	Render(s pose.Skeleton, j pose.Joint, angle float64) ([]byte, error)
}

type Streamer struct {
	sender    FrameSender
	estimator Estimator
	renderer  Renderer
	interval  time.Duration
	logger    *slog.Logger

	mu    sync.RWMutex
	joint pose.Joint
}

func New(sender FrameSender, estimator Estimator, renderer Renderer, fps int, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	if fps < 1 {
		fps = 20
	}
	joint, _ := pose.LookupJoint(pose.DefaultJoint)
	return &Streamer{
		sender:    sender,
		estimator: estimator,
		renderer:  renderer,
		interval:  time.Second / time.Duration(fps),
		logger:    logger,
		joint:     joint,
	}
}

// HandleCommand applies one command from the consumer. Unknown actions and
// joints are logged and ignored.
func (s *Streamer) HandleCommand(cmd tcp.Command) {
	switch cmd.Action {
	case tcp.ActionStartVideo:
		joint, err := pose.LookupJoint(cmd.Argument)
		if err != nil {
			s.logger.Warn("command_rejected",
				"command", cmd.String(),
				"error", err.Error(),
				"supported", pose.JointNames(),
			)
			return
		}
		s.mu.Lock()
		s.joint = joint
		s.mu.Unlock()
		s.logger.Info("tracking_joint", "joint", joint.Name)
	default:
		s.logger.Warn("command_unknown", "command", cmd.String())
	}
}

func (s *Streamer) Joint() pose.Joint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joint
}

// Frame builds one record for elapsed time t.
func (s *Streamer) Frame(t time.Duration) (tcp.FrameRecord, error) {
	joint := s.Joint()
	skeleton := s.estimator.Estimate(t, joint)
	angle, ok := pose.JointAngle(skeleton, joint)
	if !ok {
		angle = 0
	}
	jpeg, err := s.renderer.Render(skeleton, joint, angle)
	if err != nil {
		return tcp.FrameRecord{}, fmt.Errorf("render frame: %w", err)
	}
	return tcp.FrameRecord{
		Image: base64.StdEncoding.EncodeToString(jpeg),
		Angle: angle,
	}, nil
}

// Run sends one frame per tick until ctx ends or a send fails.
func (s *Streamer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	start := time.Now()

	for {
		rec, err := s.Frame(time.Since(start))
		if err != nil {
			s.logger.Error("frame_build_failed", "error", err.Error())
		} else if err := s.sender.Send(rec); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
