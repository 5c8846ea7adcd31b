package crypt

import "testing"

func TestTripleECDHAgreement(t *testing.T) {
	serverLongSK, serverLongPK, err := NewEphemeralKeypair()
	if err != nil {
		t.Fatal(err)
	}
	serverEphSK, serverEphPK, err := NewEphemeralKeypair()
	if err != nil {
		t.Fatal(err)
	}
	clientLongSK, clientLongPK, err := NewEphemeralKeypair()
	if err != nil {
		t.Fatal(err)
	}
	clientEphSK, clientEphPK, err := NewEphemeralKeypair()
	if err != nil {
		t.Fatal(err)
	}

	serverSide, err := TripleECDH(serverLongSK, serverEphSK, clientLongPK, clientEphPK)
	if err != nil {
		t.Fatal(err)
	}
	clientSide, err := TripleECDH(clientLongSK, clientEphSK, serverLongPK, serverEphPK)
	if err != nil {
		t.Fatal(err)
	}

	if serverSide != clientSide {
		t.Fatalf("triple ECDH disagreement: server=%x client=%x", serverSide, clientSide)
	}
}

func TestTripleECDHDiffersByPeer(t *testing.T) {
	aLongSK, _, _ := NewEphemeralKeypair()
	aEphSK, _, _ := NewEphemeralKeypair()
	_, bLongPK, _ := NewEphemeralKeypair()
	_, bEphPK, _ := NewEphemeralKeypair()
	_, cLongPK, _ := NewEphemeralKeypair()
	_, cEphPK, _ := NewEphemeralKeypair()

	k1, err := TripleECDH(aLongSK, aEphSK, bLongPK, bEphPK)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := TripleECDH(aLongSK, aEphSK, cLongPK, cEphPK)
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Fatal("triple ECDH produced the same key against two different peers")
	}
}
