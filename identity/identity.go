// identity.go - server identity key loading
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

// Package identity loads or creates the server's long-term X25519
// identity key, grounded on disk.go's pattern of reading a key from a
// file if present and generating fresh state otherwise, adapted here
// for a single raw secret key file rather than an encrypted state blob
// (the secret itself is protected in memory via crypt.LongKey's
// memguard-backed storage instead of an on-disk passphrase).
package identity

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/duskline/duskline/crypt"
)

// Load reads the 32-byte secret key at path and wraps it as a LongKey,
// generating and persisting a fresh key first if the file does not
// exist.
func Load(path string) (*crypt.LongKey, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		raw, err = generateAndPersist(path)
	}
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	if len(raw) != crypt.SecretKeySize {
		return nil, fmt.Errorf("identity: %s has %d bytes, want %d", path, len(raw), crypt.SecretKeySize)
	}

	var sk [32]byte
	copy(sk[:], raw)
	for i := range raw {
		raw[i] = 0
	}
	return crypt.NewLongKey(sk)
}

func generateAndPersist(path string) ([]byte, error) {
	sk := make([]byte, crypt.SecretKeySize)
	if _, err := rand.Read(sk); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, sk, 0o600); err != nil {
		return nil, err
	}
	return sk, nil
}
