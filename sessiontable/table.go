// table.go - session routing table
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

// Package sessiontable implements the Session Table: the Listener
// Actor's exclusively-owned index from resume token to session
// routing state, and the reverse index from peer address to session.
// Grounded on original_source/listener.rs's SessionTable (rebind,
// lookup, new_sess, delete) and its addr_to_token invariant.
package sessiontable

import (
	"net"
	"sync"

	"github.com/duskline/duskline/addrmap"
	"github.com/duskline/duskline/crypt"
	"github.com/duskline/duskline/wire"
)

// Entry is the routing record for one live session: where decrypted
// data frames are delivered, the AEAD used to decrypt inbound traffic,
// and the set of shard addresses currently considered this session's.
type Entry struct {
	Ingress chan<- wire.DataFrame
	UpAEAD  *crypt.StdAEAD
	Addrs   *addrmap.Map
}

// Table is the Listener Actor's session index. Every method takes the
// table's own mutex; spec §4.4/§9 give the Listener Actor exclusive
// ownership of the table, and only ShardedAddrs inside each Entry is
// shared with an output poller.
type Table struct {
	mu          sync.Mutex
	byToken     map[string]*Entry
	addrToToken map[string]string
}

// New constructs an empty Table.
func New() *Table {
	return &Table{
		byToken:     make(map[string]*Entry),
		addrToToken: make(map[string]string),
	}
}

// NewSess registers a brand new session under token. The caller must
// follow this with Rebind to associate at least one address, or the
// session is unreachable from the network.
func (t *Table) NewSess(token []byte, ingress chan<- wire.DataFrame, upAEAD *crypt.StdAEAD, addrs *addrmap.Map) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byToken[string(token)] = &Entry{Ingress: ingress, UpAEAD: upAEAD, Addrs: addrs}
}

// Rebind associates shardID -> addr with the session identified by
// token, evicting whatever address previously occupied that shard from
// the reverse index. Returns false if token names no known session.
func (t *Table) Rebind(addr net.Addr, shardID uint8, token []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.byToken[string(token)]
	if !ok {
		return false
	}

	if prev, had := entry.Addrs.Get(shardID); had {
		delete(t.addrToToken, prev.String())
	}
	entry.Addrs.Set(shardID, addr)
	t.addrToToken[addr.String()] = string(token)
	return true
}

// Lookup is the O(1) reverse lookup performed on every inbound
// datagram: does addr currently belong to a live session, and if so
// what ingress channel and up-direction AEAD does it use.
func (t *Table) Lookup(addr net.Addr) (ingress chan<- wire.DataFrame, upAEAD *crypt.StdAEAD, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	token, ok := t.addrToToken[addr.String()]
	if !ok {
		return nil, nil, false
	}
	entry, ok := t.byToken[token]
	if !ok {
		return nil, nil, false
	}
	return entry.Ingress, entry.UpAEAD, true
}

// Delete removes the session identified by token, purging every
// addr -> token entry whose address belongs to that session's
// ShardedAddrs. A no-op if token names no known session (the drop hook
// may race with an earlier Delete; spec §7 treats that as harmless).
func (t *Table) Delete(token []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.byToken[string(token)]
	if !ok {
		return
	}
	for _, addr := range entry.Addrs.All() {
		delete(t.addrToToken, addr.String())
	}
	delete(t.byToken, string(token))
}
