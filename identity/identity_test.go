package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGeneratesOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")

	k1, err := Load(path)
	if err != nil {
		t.Fatalf("Load (generate): %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("key file not persisted: %v", err)
	}

	k2, err := Load(path)
	if err != nil {
		t.Fatalf("Load (reload): %v", err)
	}
	if k1.Public() != k2.Public() {
		t.Fatal("reloading the same file must yield the same identity")
	}
}

func TestLoadRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")
	if err := os.WriteFile(path, []byte("too short"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a malformed key file")
	}
}
