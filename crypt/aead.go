// aead.go - padded, obfuscating AEAD framing
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

package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryptFailed is returned (and, at most call sites, simply
// collapsed into a dropped packet) when an AEAD open fails.
var ErrDecryptFailed = errors.New("crypt: aead open failed")

// StdAEAD is the obfuscating, length-padded authenticated cipher used
// for every handshake and data frame on the wire. A blob produced by
// Encrypt/PadEncrypt is `nonce || sealed`.
type StdAEAD struct {
	aead cipher.AEAD
}

// NewStdAEAD constructs a StdAEAD from a 32-byte key.
func NewStdAEAD(key [32]byte) *StdAEAD {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		// Only fails for a bad key length, which is impossible here.
		panic(err)
	}
	return &StdAEAD{aead: aead}
}

// Encrypt seals plain under the given 12-byte nonce and returns
// `nonce || sealed`.
func (s *StdAEAD) Encrypt(plain []byte, nonce [chacha20poly1305.NonceSize]byte) []byte {
	out := make([]byte, 0, len(nonce)+len(plain)+s.aead.Overhead())
	out = append(out, nonce[:]...)
	return s.aead.Seal(out, nonce[:], plain, nil)
}

// Decrypt opens a blob produced by Encrypt.
func (s *StdAEAD) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < s.aead.NonceSize() {
		return nil, ErrDecryptFailed
	}
	nonce := blob[:s.aead.NonceSize()]
	sealed := blob[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// randomNonce draws a fresh random nonce; StdAEAD never reuses a key
// across long enough traffic for random nonces to be a practical risk
// at the message volumes a single session handles.
func randomNonce() ([chacha20poly1305.NonceSize]byte, error) {
	var n [chacha20poly1305.NonceSize]byte
	_, err := io.ReadFull(rand.Reader, n[:])
	return n, err
}

// PadSeal pads an already-serialized payload to at least padToLen
// bytes and seals it. The pad is a 4-byte big-endian payload length
// followed by the payload bytes and zero filler, so that PadOpen can
// recover the exact payload regardless of target length.
func (s *StdAEAD) PadSeal(payload []byte, padToLen int) ([]byte, error) {
	plain := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(plain[:4], uint32(len(payload)))
	copy(plain[4:], payload)
	if len(plain) < padToLen {
		padded := make([]byte, padToLen)
		copy(padded, plain)
		plain = padded
	}
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	return s.Encrypt(plain, nonce), nil
}

// PadOpen opens a blob produced by PadSeal/PadEncrypt and returns the
// recovered, unpadded payload bytes.
func (s *StdAEAD) PadOpen(blob []byte) ([]byte, bool) {
	plain, err := s.Decrypt(blob)
	if err != nil || len(plain) < 4 {
		return nil, false
	}
	n := binary.BigEndian.Uint32(plain[:4])
	if uint64(n) > uint64(len(plain)-4) {
		return nil, false
	}
	return plain[4 : 4+n], true
}

// PadEncrypt cbor-serializes msg and seals it via PadSeal.
func PadEncrypt[T any](s *StdAEAD, msg T, padToLen int) ([]byte, error) {
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return s.PadSeal(payload, padToLen)
}

// PadDecrypt opens a blob produced by PadEncrypt and cbor-decodes the
// recovered payload into T. ok is false if decryption, length
// recovery, or cbor decoding failed for any reason; callers must treat
// that uniformly as "not this frame type" / "drop".
func PadDecrypt[T any](s *StdAEAD, blob []byte) (msg T, ok bool) {
	payload, ok := s.PadOpen(blob)
	if !ok {
		return msg, false
	}
	if err := cbor.Unmarshal(payload, &msg); err != nil {
		return msg, false
	}
	return msg, true
}
