package tcp

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoProducer     = errors.New("no producer connected")
	ErrInvalidCommand = errors.New("invalid command")
)

// Command is a control message for the producer, sent as "<action>:<argument>"
// with no length prefix.
type Command struct {
	Action   string
	Argument string
}

const ActionStartVideo = "start_video"

func (c Command) Validate() error {
	if c.Action == "" || strings.Contains(c.Action, ":") {
		return fmt.Errorf("%w: bad action %q", ErrInvalidCommand, c.Action)
	}
	if c.Argument == "" {
		return fmt.Errorf("%w: empty argument", ErrInvalidCommand)
	}
	return nil
}

func (c Command) String() string {
	return c.Action + ":" + c.Argument
}

// ParseCommand splits raw at the first ':'.
func ParseCommand(raw string) (Command, error) {
	action, arg, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Command{}, fmt.Errorf("%w: missing ':' in %q", ErrInvalidCommand, raw)
	}
	cmd := Command{Action: action, Argument: arg}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// ProducerConnection is the single accepted producer socket. Inbound it
// carries framed records, outbound it carries unframed commands.
type ProducerConnection struct {
	ID   string // unique identifier used in logs
	conn net.Conn

	writeMu      sync.Mutex // serializes concurrent command writes
	writeTimeout time.Duration
}

func NewProducerConnection(conn net.Conn, writeTimeout time.Duration) *ProducerConnection {
	return &ProducerConnection{
		ID:           uuid.NewString(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (p *ProducerConnection) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// Send writes one command. It does not close the connection on failure;
// the receive loop sees the broken socket on its next read.
func (p *ProducerConnection) Send(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.writeTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if _, err := p.conn.Write([]byte(cmd.String())); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

func (p *ProducerConnection) Close() error {
	return p.conn.Close()
}
