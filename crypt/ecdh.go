// ecdh.go - X25519 keypairs and the triple-ECDH combiner
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
	"bytes"
	"crypto/rand"
	"io"

	"golang.org/x/crypto/curve25519"
)

// PublicKeySize and SecretKeySize are the sizes, in bytes, of an
// X25519 public/secret key.
const (
	PublicKeySize = 32
	SecretKeySize = 32
)

// NewEphemeralKeypair generates a fresh X25519 keypair for use as a
// handshake ephemeral key.
func NewEphemeralKeypair() (sk, pk [32]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, sk[:]); err != nil {
		return sk, pk, err
	}
	pk, err = publicFromSecret(sk)
	return sk, pk, err
}

func publicFromSecret(sk [32]byte) (pk [32]byte, err error) {
	out, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		return pk, err
	}
	copy(pk[:], out)
	return pk, nil
}

// TripleECDH derives the 32-byte mutually authenticated SessionKey
// from a local static secret, a local ephemeral secret, and the
// remote party's static and ephemeral public keys. It combines three
// X25519 Diffie-Hellman computations:
//
//	DH(longSK, remoteEphPK)
//	DH(ephSK,  remoteLongPK)
//	DH(ephSK,  remoteEphPK)
//
// and hashes the concatenation with BLAKE2b to produce a single
// shared secret. The two static/ephemeral terms are concatenated in
// ascending byte order, so both parties derive the same key whichever
// side of the handshake they are on.
func TripleECDH(longSK, ephSK [32]byte, remoteLongPK, remoteEphPK [32]byte) ([32]byte, error) {
	var combined [96]byte

	d1, err := curve25519.X25519(longSK[:], remoteEphPK[:])
	if err != nil {
		return [32]byte{}, err
	}

	d2, err := curve25519.X25519(ephSK[:], remoteLongPK[:])
	if err != nil {
		return [32]byte{}, err
	}
	if bytes.Compare(d1, d2) > 0 {
		d1, d2 = d2, d1
	}
	copy(combined[0:32], d1)
	copy(combined[32:64], d2)

	d3, err := curve25519.X25519(ephSK[:], remoteEphPK[:])
	if err != nil {
		return [32]byte{}, err
	}
	copy(combined[64:96], d3)

	return KeyedHash([]byte("duskline-triple-ecdh-v1"), combined[:]), nil
}
