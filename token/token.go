// token.go - resume token codec
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

// Package token implements the self-describing, server-encrypted
// resume token: the only continuation state a session has, so that
// the server need not pre-register anything about a client before it
// resumes. The token's plaintext uses github.com/ugorji/go/codec
// (CBOR handle) rather than the github.com/fxamacker/cbor/v2 used for
// wire frames, mirroring the reference repository's habit of picking a
// serializer per subsystem (see disk.go's use of ugorji/go/codec for
// on-disk state, distinct from the wire protocol's cbor/v2 frames).
package token

import (
	"bytes"

	"github.com/ugorji/go/codec"

	"github.com/duskline/duskline/crypt"
)

var handle = &codec.CborHandle{}

// Info is the continuation state embedded in a resume token: the
// session's derived symmetric key and the time the handshake that
// produced it was accepted.
type Info struct {
	SessionKey [32]byte
	InitTimeMs uint64
}

// Encrypt serializes info and seals it under the token key. Plaintext
// resume tokens are never padded to a fixed length; unlike handshake
// and data frames they are only ever carried inside an already-padded
// outer frame, so size obfuscation does not apply here.
func Encrypt(aead *crypt.StdAEAD, info Info) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, handle)
	if err := enc.Encode(info); err != nil {
		return nil, err
	}
	return aead.PadSeal(buf.Bytes(), 0)
}

// Decrypt opens and decodes a resume token previously produced by
// Encrypt. ok is false if the token was encrypted under a different
// key, corrupt, or malformed — the caller must treat all of those
// uniformly as "unknown token".
func Decrypt(aead *crypt.StdAEAD, ciphertext []byte) (info Info, ok bool) {
	payload, opened := aead.PadOpen(ciphertext)
	if !opened {
		return info, false
	}
	dec := codec.NewDecoder(bytes.NewReader(payload), handle)
	if err := dec.Decode(&info); err != nil {
		return info, false
	}
	return info, true
}
