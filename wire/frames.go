// frames.go - handshake and data frame types
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

// Package wire defines the two frame families carried as padded
// AEAD-sealed payloads between client and server: HandshakeFrame
// variants and the opaque DataFrame. Frames are cbor-serialized
// (github.com/fxamacker/cbor/v2), matching the struct-tag-driven cbor
// usage of core/pki/descriptor.go and the tagged-union style of
// server/cborplugin/client.go in the reference repository.
package wire

// HandshakeVersion is the only protocol version a ClientHello may
// declare.
const HandshakeVersion = 1

// ClientHello is the first message of a new handshake.
type ClientHello struct {
	LongPK  [32]byte
	EphPK   [32]byte
	Version uint8
}

// ServerHello replies to a ClientHello, carrying the resume token the
// client must present to bind a session.
type ServerHello struct {
	LongPK      [32]byte
	EphPK       [32]byte
	ResumeToken []byte
}

// ClientResume associates a source address (and shard) with a
// previously issued resume token.
type ClientResume struct {
	ResumeToken []byte
	ShardID     uint8
}

// DataFrame is an opaque application payload; the listener only
// decrypts and forwards it, never interpreting Payload itself.
type DataFrame struct {
	Payload []byte
}
