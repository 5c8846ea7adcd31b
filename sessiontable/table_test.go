package sessiontable

import (
	"net"
	"testing"

	"github.com/duskline/duskline/addrmap"
	"github.com/duskline/duskline/crypt"
	"github.com/duskline/duskline/wire"
)

func udpAddr(s string) net.Addr {
	a, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		panic(err)
	}
	return a
}

func newTestEntry(shardID uint8, addr net.Addr) (*Table, []byte) {
	table := New()
	token := []byte("test-token")
	aead := crypt.NewStdAEAD([32]byte{1})
	table.NewSess(token, make(chan wire.DataFrame, 1), aead, addrmap.New(shardID, addr))
	return table, token
}

func TestRebindEviction(t *testing.T) {
	addr1 := udpAddr("127.0.0.1:1000")
	addr2 := udpAddr("127.0.0.1:2000")
	table, token := newTestEntry(0, addr1)

	if !table.Rebind(addr1, 0, token) {
		t.Fatal("initial rebind to addr1 must succeed")
	}
	if !table.Rebind(addr2, 0, token) {
		t.Fatal("rebind to addr2 on the same shard must succeed")
	}

	if _, _, ok := table.Lookup(addr1); ok {
		t.Fatal("addr1 must be evicted once shard 0 rebinds to addr2")
	}
	if _, _, ok := table.Lookup(addr2); !ok {
		t.Fatal("addr2 must now route to the session")
	}
}

func TestRebindUnknownTokenFails(t *testing.T) {
	table := New()
	if table.Rebind(udpAddr("127.0.0.1:1000"), 0, []byte("nope")) {
		t.Fatal("rebind with an unregistered token must return false")
	}
}

func TestMultiShardIndependence(t *testing.T) {
	addr0 := udpAddr("127.0.0.1:1000")
	addr1 := udpAddr("127.0.0.1:2000")
	table, token := newTestEntry(0, addr0)
	table.Rebind(addr0, 0, token)

	if !table.Rebind(addr1, 1, token) {
		t.Fatal("rebind of a new shard must succeed")
	}
	if _, _, ok := table.Lookup(addr0); !ok {
		t.Fatal("addr0 must still route after a different shard rebinds")
	}
	if _, _, ok := table.Lookup(addr1); !ok {
		t.Fatal("addr1 must route to the same session")
	}
}

// TestInvariantAfterRandomOps exercises property 3: after any sequence
// of NewSess/Rebind/Delete, every addr -> token entry names a token
// present in the forward map whose ShardedAddrs contains that address.
func TestInvariantAfterRandomOps(t *testing.T) {
	table := New()
	addrs := []net.Addr{
		udpAddr("127.0.0.1:1000"),
		udpAddr("127.0.0.1:2000"),
		udpAddr("127.0.0.1:3000"),
	}
	tokenA := []byte("token-a")
	tokenB := []byte("token-b")
	aead := crypt.NewStdAEAD([32]byte{1})

	table.NewSess(tokenA, make(chan wire.DataFrame, 1), aead, addrmap.New(0, addrs[0]))
	table.Rebind(addrs[0], 0, tokenA)
	table.Rebind(addrs[1], 1, tokenA)

	table.NewSess(tokenB, make(chan wire.DataFrame, 1), aead, addrmap.New(0, addrs[2]))
	table.Rebind(addrs[2], 0, tokenB)

	// Steal addrs[1] away from tokenA's shard 1 onto tokenB.
	table.Rebind(addrs[1], 1, tokenB)

	table.assertInvariant(t)

	table.Delete(tokenA)
	table.assertInvariant(t)
	if _, _, ok := table.Lookup(addrs[0]); ok {
		t.Fatal("deleting tokenA must remove all of its remaining addresses")
	}
	if _, _, ok := table.Lookup(addrs[1]); !ok {
		t.Fatal("addrs[1] was reassigned to tokenB before the delete and must still route")
	}
}

func (t *Table) assertInvariant(tb *testing.T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addrKey, token := range t.addrToToken {
		entry, ok := t.byToken[token]
		if !ok {
			tb.Fatalf("addr %q maps to token with no forward entry", addrKey)
		}
		found := false
		for _, a := range entry.Addrs.All() {
			if a.String() == addrKey {
				found = true
				break
			}
		}
		if !found {
			tb.Fatalf("addr %q maps to a token whose ShardedAddrs does not contain it", addrKey)
		}
	}
}
