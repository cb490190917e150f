package streamer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rheumactive/internal/microservices/tcp"
	"rheumactive/internal/pose"
)

type recordingSender struct {
	mu   sync.Mutex
	recs []tcp.FrameRecord
	err  error
}

func (r *recordingSender) Send(rec tcp.FrameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.recs = append(r.recs, rec)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStreamer(sender FrameSender) *Streamer {
	return New(sender, pose.NewMockEstimator(160, 120), pose.Renderer{Width: 160, Height: 120, Quality: 60}, 50, quietLogger())
}

func TestFrame_CarriesJPEGAndRoundedAngle(t *testing.T) {
	s := newStreamer(&recordingSender{})

	rec, err := s.Frame(0)
	require.NoError(t, err)
	jpeg, err := base64.StdEncoding.DecodeString(rec.Image)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2])
	assert.Equal(t, pose.Round1(rec.Angle), rec.Angle)
	assert.InDelta(t, 160, rec.Angle, 0.1)
}

func TestHandleCommand_SwitchesJoint(t *testing.T) {
	s := newStreamer(&recordingSender{})
	assert.Equal(t, pose.DefaultJoint, s.Joint().Name)

	s.HandleCommand(tcp.Command{Action: tcp.ActionStartVideo, Argument: "right_knee"})
	assert.Equal(t, "right_knee", s.Joint().Name)

	s.HandleCommand(tcp.Command{Action: tcp.ActionStartVideo, Argument: "tail"})
	assert.Equal(t, "right_knee", s.Joint().Name, "unknown joint ignored")

	s.HandleCommand(tcp.Command{Action: "reboot", Argument: "now"})
	assert.Equal(t, "right_knee", s.Joint().Name)
}

func TestHandleCommand_RejectionListsJoints(t *testing.T) {
	var buf bytes.Buffer
	s := New(&recordingSender{}, pose.NewMockEstimator(160, 120), pose.Renderer{Width: 160, Height: 120, Quality: 60}, 50,
		slog.New(slog.NewTextHandler(&buf, nil)))

	s.HandleCommand(tcp.Command{Action: tcp.ActionStartVideo, Argument: "tail"})
	out := buf.String()
	assert.Contains(t, out, "command_rejected")
	assert.Contains(t, out, "right_knee")
}

func TestRun_SendsUntilCancelled(t *testing.T) {
	sender := &recordingSender{}
	s := newStreamer(sender)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.GreaterOrEqual(t, sender.count(), 3)
}

func TestRun_StopsOnSendFailure(t *testing.T) {
	s := newStreamer(&recordingSender{err: errors.New("broken pipe")})
	err := s.Run(context.Background())
	assert.ErrorContains(t, err, "broken pipe")
}

// producer and consumer wired over a real loopback link
func TestStreamer_OverLink(t *testing.T) {
	store := tcp.NewFrameStore()
	listener := tcp.NewListener(tcp.ListenerConfig{Addr: "127.0.0.1:0"}, store, quietLogger())
	require.NoError(t, listener.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = listener.Serve(ctx) }()

	link, err := tcp.Dial(ctx, listener.Addr().(*net.TCPAddr).String(), quietLogger())
	require.NoError(t, err)
	defer link.Close()

	s := newStreamer(link)
	go func() { _ = link.ReadCommands(s.HandleCommand) }()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return !store.Snapshot().Empty() }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, listener.Connected, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, listener.SendCommand(tcp.Command{Action: tcp.ActionStartVideo, Argument: "left_knee"}))
	require.Eventually(t, func() bool { return s.Joint().Name == "left_knee" }, 2*time.Second, 10*time.Millisecond)
}
