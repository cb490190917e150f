package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_SendsFramesToListener(t *testing.T) {
	h := startListener(t)

	link, err := Dial(context.Background(), h.addr, discardLogger())
	require.NoError(t, err)
	defer link.Close()

	for i := 1; i <= 5; i++ {
		require.NoError(t, link.Send(stubRecord(float64(i))))
	}
	assert.Equal(t, uint64(5), link.Sent())

	require.Eventually(t, func() bool { return h.store.Snapshot().Seq == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 5.0, h.store.Angle())
}

func TestLink_SendRejectsNonFiniteAngle(t *testing.T) {
	h := startListener(t)
	link, err := Dial(context.Background(), h.addr, discardLogger())
	require.NoError(t, err)
	defer link.Close()

	assert.ErrorIs(t, link.Send(FrameRecord{Image: "QQ==", Angle: posInf()}), ErrNonFiniteAngle)
	assert.Equal(t, uint64(0), link.Sent())
}

func TestLink_ReceivesCommands(t *testing.T) {
	h := startListener(t)
	link, err := Dial(context.Background(), h.addr, discardLogger())
	require.NoError(t, err)

	got := make(chan Command, 1)
	readDone := make(chan error, 1)
	go func() {
		readDone <- link.ReadCommands(func(cmd Command) { got <- cmd })
	}()

	require.Eventually(t, h.listener.Connected, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, h.listener.SendCommand(Command{Action: ActionStartVideo, Argument: "knee"}))

	select {
	case cmd := <-got:
		assert.Equal(t, Command{Action: ActionStartVideo, Argument: "knee"}, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("command not received")
	}

	require.NoError(t, link.Close())
	select {
	case err := <-readDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadCommands did not return")
	}
}

func TestDialRetry_GivesUpWithContext(t *testing.T) {
	// grab a free port and release it so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = DialRetry(ctx, addr, 20*time.Millisecond, discardLogger())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("start_video:elbow")
	require.NoError(t, err)
	assert.Equal(t, Command{Action: "start_video", Argument: "elbow"}, cmd)
	assert.Equal(t, "start_video:elbow", cmd.String())

	cmd, err = ParseCommand("set:a:b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", cmd.Argument)

	for _, raw := range []string{"", "start_video", ":elbow", "start_video:"} {
		_, err := ParseCommand(raw)
		assert.ErrorIs(t, err, ErrInvalidCommand, raw)
	}
}
