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

// commands are unframed, one read is taken as one command
const commandReadSize = 1024

// Link is the producer side of the producer/consumer connection.
type Link struct {
	conn   net.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	sent    uint64
}

// Dial connects to the consumer once.
func Dial(ctx context.Context, addr string, logger *slog.Logger) (*Link, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	logger.Info("link_connected",
		"local_addr", conn.LocalAddr().String(),
		"remote_addr", conn.RemoteAddr().String(),
	)
	return &Link{conn: conn, logger: logger}, nil
}

// DialRetry keeps dialing every interval until it connects or ctx ends.
func DialRetry(ctx context.Context, addr string, interval time.Duration, logger *slog.Logger) (*Link, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for attempt := 1; ; attempt++ {
		link, err := Dial(ctx, addr, logger)
		if err == nil {
			return link, nil
		}
		logger.Warn("link_connect_failed",
			"attempt", attempt,
			"addr", addr,
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Send frames and writes one record.
func (l *Link) Send(rec FrameRecord) error {
	msg, err := Encode(rec)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.conn.Write(msg); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	l.sent++
	return nil
}

// Sent reports how many records went out.
func (l *Link) Sent() uint64 {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.sent
}

// ReadCommands passes each command sent by the consumer to handle until the
// connection closes. Unparseable input is logged and skipped.
func (l *Link) ReadCommands(handle func(Command)) error {
	buf := make([]byte, commandReadSize)
	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			cmd, perr := ParseCommand(string(buf[:n]))
			if perr != nil {
				l.logger.Warn("link_bad_command", "error", perr.Error())
			} else {
				handle(cmd)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || IsClosedConnError(err) {
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}
	}
}

func (l *Link) Close() error {
	return l.conn.Close()
}
