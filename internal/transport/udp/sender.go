// SPDX-License-Identifier: MIT

// Package udp streams snapshot bar frames as compact binary packets,
// for consumers that want raw data without a WebSocket handshake.
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
)

// Sender transmits packets to a fixed UDP target.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// NewSender dials the target address, e.g. "127.0.0.1:9090".
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP target %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing UDP target %q: %w", targetAddress, err)
	}

	applog.Infof("UDP: Sending snapshot packets to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits one packet. Safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("UDP sender is closed")
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("sending UDP packet: %w", err)
	}
	return nil
}

// Close shuts the connection down. Subsequent Sends fail.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
