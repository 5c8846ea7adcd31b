// hash.go - keyed hash used for session key derivation
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

import "golang.org/x/crypto/blake2b"

// KeyedHash computes a 32-byte BLAKE2b keyed hash of msg under key,
// used for domain-separated subkey derivation (UpLabel/DnLabel) and
// as the Cookie's key schedule. The reference implementation this
// repository is derived from uses BLAKE3 keyed hashing for this role;
// no dependency in this repository's ecosystem provides BLAKE3, so
// BLAKE2b keyed mode is used instead (see DESIGN.md).
func KeyedHash(key, msg []byte) [32]byte {
	h, err := blake2b.New256(key)
	if err != nil {
		// Only occurs if key is longer than blake2b.Size (64 bytes),
		// which never happens for the short fixed labels used as keys.
		panic(err)
	}
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
