package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// pending connections allowed on the ingest socket, single-producer model
const listenBacklog = 1

var ErrListenerUsed = errors.New("listener already served")

type ListenerState int32

const (
	StateIdle      ListenerState = iota // not bound yet
	StateBound                          // listening, no producer
	StateConnected                      // one producer attached
	StateClosed                         // finished, never reused
)

func (s ListenerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBound:
		return "bound"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

type ListenerConfig struct {
	Addr                string
	MaxMessageSize      uint32        // 0 disables the guard
	CommandWriteTimeout time.Duration // deadline for one outbound command write
}

// Listener is the consumer side of the producer link. An instance accepts
// exactly one producer connection over its lifetime; once that connection
// ends the listening socket is closed as well. Supervisor builds a new
// instance when reconnects are wanted.
type Listener struct {
	cfg    ListenerConfig
	store  *FrameStore
	logger *slog.Logger

	mu       sync.Mutex
	state    ListenerState
	serving  bool
	ln       net.Listener
	producer *ProducerConnection // nil unless a producer is attached

	done     chan struct{}
	doneOnce sync.Once
}

func NewListener(cfg ListenerConfig, store *FrameStore, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		cfg:    cfg,
		store:  store,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Listen binds the configured address. Serve calls it when needed; calling
// it first lets the caller learn the bound address (e.g. port 0 in tests).
func (l *Listener) Listen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return ErrListenerUsed
	}
	ln, err := listenSingle(l.cfg.Addr)
	if err != nil {
		return err
	}
	l.ln = ln
	l.state = StateBound
	l.logger.Info("ingest_listening",
		"addr", ln.Addr().String(),
		"backlog", listenBacklog,
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Listener) Connected() bool {
	return l.State() == StateConnected
}

// Done is closed once the listener has released all of its sockets.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Serve accepts one producer and feeds the frame store until the connection
// ends or ctx is cancelled. Receive-side failures are logged, not returned;
// only bind and accept failures come back to the caller.
func (l *Listener) Serve(ctx context.Context) error {
	if l.State() == StateIdle {
		if err := l.Listen(); err != nil {
			l.finish()
			return err
		}
	}

	l.mu.Lock()
	if l.state == StateClosed && !l.serving {
		// closed before anyone accepted on it, a shutdown rather than a reuse
		l.mu.Unlock()
		return nil
	}
	if l.state != StateBound || l.serving {
		l.mu.Unlock()
		return ErrListenerUsed
	}
	l.serving = true
	ln := l.ln
	l.mu.Unlock()
	defer l.finish()

	// unblock Accept and Read when the caller goes away
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil || IsClosedConnError(err) {
			return nil
		}
		l.logger.Error("ingest_accept_failed", "error", err)
		return fmt.Errorf("failed to accept producer connection: %w", err)
	}

	producer := NewProducerConnection(conn, l.cfg.CommandWriteTimeout)
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	l.producer = producer
	l.state = StateConnected
	l.mu.Unlock()

	l.logger.Info("producer_connected",
		"producer_id", producer.ID,
		"remote_addr", producer.RemoteAddr(),
	)
	l.receive(producer)
	return nil
}

// receive runs the decode loop for one producer connection.
func (l *Listener) receive(p *ProducerConnection) {
	decoder := NewDecoder(p.conn, l.cfg.MaxMessageSize)
	var frames uint64
	for {
		rec, err := decoder.Decode()
		if err != nil {
			l.logReceiveEnd(p, err, frames)
			return
		}
		l.store.Publish(rec)
		frames++
	}
}

func (l *Listener) logReceiveEnd(p *ProducerConnection, err error, frames uint64) {
	attrs := []any{"producer_id", p.ID, "frames", frames}
	switch {
	case errors.Is(err, io.EOF):
		l.logger.Info("producer_disconnected", attrs...)
	case IsClosedConnError(err):
		l.logger.Info("producer_connection_closed", attrs...)
	case errors.Is(err, ErrTruncatedMessage),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrMessageTooLarge):
		l.logger.Warn("ingest_protocol_error", append(attrs, "error", err.Error())...)
	default:
		l.logger.Error("ingest_read_error", append(attrs, "error", err.Error())...)
	}
}

// SendCommand writes cmd to the attached producer. It never waits for a
// producer to show up: with none attached it returns ErrNoProducer.
func (l *Listener) SendCommand(cmd Command) error {
	l.mu.Lock()
	p := l.producer
	l.mu.Unlock()
	if p == nil {
		return ErrNoProducer
	}
	if err := p.Send(cmd); err != nil {
		l.logger.Warn("command_send_failed",
			"producer_id", p.ID,
			"command", cmd.String(),
			"error", err.Error(),
		)
		return err
	}
	l.logger.Info("command_sent",
		"producer_id", p.ID,
		"command", cmd.String(),
	)
	return nil
}

// Close stops the listener. Safe to call more than once and from any goroutine.
func (l *Listener) Close() error {
	l.mu.Lock()
	serving := l.serving
	producer, ln := l.producer, l.ln
	l.mu.Unlock()

	if !serving {
		l.finish()
		return nil
	}
	// Serve owns the cleanup, closing the sockets is enough to wake it
	if producer != nil {
		_ = producer.Close()
	}
	if ln != nil {
		_ = ln.Close()
	}
	return nil
}

func (l *Listener) finish() {
	l.mu.Lock()
	producer, ln := l.producer, l.ln
	l.producer = nil
	wasClosed := l.state == StateClosed
	l.state = StateClosed
	l.mu.Unlock()

	if producer != nil {
		_ = producer.Close()
	}
	if ln != nil {
		_ = ln.Close()
	}
	l.doneOnce.Do(func() { close(l.done) })
	if !wasClosed {
		l.logger.Info("ingest_listener_stopped", "addr", l.cfg.Addr)
	}
}
