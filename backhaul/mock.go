// mock.go - in-memory backhaul test double
// Copyright (C) 2019  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package backhaul

import (
	"errors"
	"net"
	"sync"
)

// ErrClosed is returned by RecvFrom once a Mock has been closed, the
// test-side equivalent of a real socket's read error terminating the
// Listener Actor.
var ErrClosed = errors.New("backhaul: closed")

// Mock is an in-memory Backhaul for tests: Deliver injects an inbound
// datagram as if it had arrived over the wire, and Sent replays every
// outbound datagram a test wants to assert on.
type Mock struct {
	local net.Addr

	mu     sync.Mutex
	sent   []Packet
	closed bool

	inbound chan inboundDatagram
}

type inboundDatagram struct {
	payload []byte
	addr    net.Addr
}

// NewMock constructs a Mock bound to local.
func NewMock(local net.Addr) *Mock {
	return &Mock{local: local, inbound: make(chan inboundDatagram, 64)}
}

// Deliver injects an inbound datagram as if received from addr.
func (m *Mock) Deliver(payload []byte, addr net.Addr) {
	m.inbound <- inboundDatagram{payload: payload, addr: addr}
}

func (m *Mock) RecvFrom() ([]byte, net.Addr, error) {
	d, ok := <-m.inbound
	if !ok {
		return nil, nil, ErrClosed
	}
	return d.payload, d.addr, nil
}

func (m *Mock) SendTo(payload []byte, addr net.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Packet{Payload: payload, Addr: addr})
	return nil
}

func (m *Mock) SendToMany(packets []Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, packets...)
	return nil
}

func (m *Mock) LocalAddr() net.Addr { return m.local }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.inbound)
	}
	return nil
}

// Sent returns a snapshot of every datagram sent so far.
func (m *Mock) Sent() []Packet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Packet, len(m.sent))
	copy(out, m.sent)
	return out
}
