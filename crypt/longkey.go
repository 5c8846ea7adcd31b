// longkey.go - locked storage for the server's long-term secret
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

import "github.com/awnumar/memguard"

// LongKey is the server's static X25519 identity. The secret half is
// held inside a memguard.LockedBuffer — mlock'd and wiped on Destroy —
// rather than a bare byte slice, matching the reference repository's
// use of memguard for long-term secret material (see ratchet.go and
// disk.go in DESIGN.md).
type LongKey struct {
	secret *memguard.LockedBuffer
	public [32]byte
}

// NewLongKey wraps a freshly generated or loaded 32-byte secret. The
// caller's copy of sk is expected to be discarded; NewLongKey does not
// retain a reference to it beyond copying it into locked memory.
func NewLongKey(sk [32]byte) (*LongKey, error) {
	pub, err := publicFromSecret(sk)
	if err != nil {
		return nil, err
	}
	buf := memguard.NewBufferFromBytes(sk[:])
	return &LongKey{secret: buf, public: pub}, nil
}

// Public returns the key's public half.
func (k *LongKey) Public() [32]byte {
	return k.public
}

// Secret copies the locked secret out for use in a DH computation.
// Callers must not retain the returned array longer than needed.
func (k *LongKey) Secret() [32]byte {
	var sk [32]byte
	copy(sk[:], k.secret.Bytes())
	return sk
}

// Destroy wipes the locked secret. The LongKey must not be used
// afterwards.
func (k *LongKey) Destroy() {
	k.secret.Destroy()
}
