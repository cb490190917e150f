//go:build !unix

package tcp

import (
	"fmt"
	"net"
)

// listenSingle falls back to the runtime listener where raw sockets are not
// available; the backlog is then whatever the OS picks.
func listenSingle(address string) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return ln, nil
}
