// backhaul.go - backhaul transport interface
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

// Package backhaul defines the Backhaul interface the Listener Actor
// consumes to move datagrams on and off the wire (spec §6), plus a
// production UDP implementation and a test double. Grounded on
// sockatz/common/conn.go and stream/stream.go's habit of wrapping a
// *net.UDPConn behind a small interface so the transport core never
// imports net.Conn details directly, and on client2/connection.go's
// batched-send shape for SendToMany.
package backhaul

import "net"

// Packet pairs an outbound payload with its destination, the unit
// SendToMany operates on.
type Packet struct {
	Payload []byte
	Addr    net.Addr
}

// Backhaul is the Listener Actor's entire view of the network. An
// implementation is shared by reference and called concurrently from
// several goroutines: the Listener's receive goroutine (RecvFrom), its
// event loop (SendTo), and each session's output poller (SendToMany).
type Backhaul interface {
	// RecvFrom blocks until a datagram arrives, or returns an error if
	// the backhaul is no longer usable (spec §7: a receive error
	// terminates the Listener Actor).
	RecvFrom() ([]byte, net.Addr, error)

	// SendTo best-effort sends one datagram; errors here are dropped
	// per spec §7, never propagated as fatal.
	SendTo(payload []byte, addr net.Addr) error

	// SendToMany best-effort sends a batch of datagrams, used by each
	// session's output poller to fan a batch of outbound frames across
	// its shard addresses.
	SendToMany(packets []Packet) error

	// LocalAddr reports the address the backhaul is bound to.
	LocalAddr() net.Addr

	// Close releases the underlying transport.
	Close() error
}
