package token

import (
	"testing"

	"github.com/duskline/duskline/crypt"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))
	aead := crypt.NewStdAEAD(key)

	info := Info{SessionKey: [32]byte{1, 2, 3}, InitTimeMs: 1690000000000}
	ct, err := Encrypt(aead, info)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, ok := Decrypt(aead, ct)
	if !ok {
		t.Fatal("Decrypt reported failure on a token it just encrypted")
	}
	if got != info {
		t.Fatalf("got %+v, want %+v", got, info)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	var key1, key2 [32]byte
	copy(key1[:], []byte("0123456789abcdef0123456789abcdef"))
	copy(key2[:], []byte("zyxwvutsrqponmlkjihgfedcba000000"))

	ct, err := Encrypt(crypt.NewStdAEAD(key1), Info{SessionKey: [32]byte{9}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := Decrypt(crypt.NewStdAEAD(key2), ct); ok {
		t.Fatal("Decrypt succeeded under the wrong key")
	}
}
