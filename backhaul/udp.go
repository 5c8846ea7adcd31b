// udp.go - UDP backhaul implementation
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

import "net"

// maxDatagramSize is large enough for the padded 1000-byte frames
// spec §4.4/§6 describe, with headroom for larger handshake or future
// frame types.
const maxDatagramSize = 2048

// UDP is the production Backhaul, a thin wrapper over *net.UDPConn.
type UDP struct {
	conn *net.UDPConn
}

// ListenUDP binds addr and returns a ready-to-use UDP backhaul.
func ListenUDP(addr string) (*UDP, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDP{conn: conn}, nil
}

func (u *UDP) RecvFrom() ([]byte, net.Addr, error) {
	buf := make([]byte, maxDatagramSize)
	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	return buf[:n], addr, nil
}

func (u *UDP) SendTo(payload []byte, addr net.Addr) error {
	_, err := u.conn.WriteTo(payload, addr)
	return err
}

func (u *UDP) SendToMany(packets []Packet) error {
	var firstErr error
	for _, p := range packets {
		if _, err := u.conn.WriteTo(p.Payload, p.Addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (u *UDP) LocalAddr() net.Addr { return u.conn.LocalAddr() }

func (u *UDP) Close() error { return u.conn.Close() }
