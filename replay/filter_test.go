package replay

import (
	"testing"
	"time"
)

func TestCheckFirstSeenTrueThenFalse(t *testing.T) {
	f := New()
	b := []byte("hello replayed handshake")

	if !f.Check(b) {
		t.Fatal("first Check of a novel value must be true")
	}
	if f.Check(b) {
		t.Fatal("second Check within the rotation window must be false")
	}
}

func TestCheckTrueAgainAfterTwoRotations(t *testing.T) {
	f := New()
	b := []byte("rotates out eventually")

	if !f.Check(b) {
		t.Fatal("first Check must be true")
	}

	// Force two rotations without a real 1200s sleep: back-date
	// currSince so the next Check rotates curr into prev (evicting b
	// from curr into prev), then back-date it again so prev is dropped
	// entirely.
	f.mu.Lock()
	f.currSince = time.Now().Add(-(rotationInterval + time.Second))
	f.mu.Unlock()

	other := []byte("unrelated value forces a rotation")
	f.Check(other) // rotates: b now lives only in prev

	f.mu.Lock()
	f.currSince = time.Now().Add(-(rotationInterval + time.Second))
	f.mu.Unlock()

	f.Check([]byte("second unrelated value")) // rotates again: prev (with b) is dropped

	if !f.Check(b) {
		t.Fatal("Check must be true again once b has rotated out of both filters")
	}
}

func TestCheckDistinctValuesIndependent(t *testing.T) {
	f := New()
	if !f.Check([]byte("a")) {
		t.Fatal("want true for first novel value")
	}
	if !f.Check([]byte("b")) {
		t.Fatal("want true for a distinct novel value")
	}
}
