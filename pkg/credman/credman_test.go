package credman

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

// fakeKeyring swaps the keyring functions for an in-memory map.
func fakeKeyring(t *testing.T) map[string]string {
	t.Helper()
	origSet, origGet, origDelete := keyringSet, keyringGet, keyringDelete
	t.Cleanup(func() {
		keyringSet, keyringGet, keyringDelete = origSet, origGet, origDelete
	})
	store := map[string]string{}
	keyringSet = func(service, user, password string) error {
		store[service+"|"+user] = password
		return nil
	}
	keyringGet = func(service, user string) (string, error) {
		pw, ok := store[service+"|"+user]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return pw, nil
	}
	keyringDelete = func(service, user string) error {
		if _, ok := store[service+"|"+user]; !ok {
			return keyring.ErrNotFound
		}
		delete(store, service+"|"+user)
		return nil
	}
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	backing := fakeKeyring(t)
	s := NewStore()

	if err := s.Set("FTP.Example.com", "alice", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if _, ok := backing["warpfetch|alice@ftp.example.com"]; !ok {
		t.Errorf("unexpected backing keys: %v", backing)
	}
	pw, ok, err := s.Password("ftp.example.com", "alice")
	if err != nil || !ok || pw != "s3cret" {
		t.Errorf("Password = %q, %v, %v", pw, ok, err)
	}

	if err := s.Delete("ftp.example.com", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Password("ftp.example.com", "alice"); ok {
		t.Error("password should be gone after Delete")
	}
	if err := s.Delete("ftp.example.com", "alice"); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
}

func TestStore_EmptyArguments(t *testing.T) {
	fakeKeyring(t)
	s := NewStore()
	if err := s.Set("", "bob", "x"); !errors.Is(err, ErrEmptyCredential) {
		t.Errorf("Set with empty host = %v", err)
	}
	if _, _, err := s.Password("host", " "); !errors.Is(err, ErrEmptyCredential) {
		t.Errorf("Password with blank user = %v", err)
	}
}

func TestStore_BackendFailure(t *testing.T) {
	fakeKeyring(t)
	keyringGet = func(string, string) (string, error) { return "", errors.New("dbus down") }
	_, ok, err := NewStore().Password("h", "u")
	if err == nil || ok {
		t.Errorf("expected backend error, got ok=%v err=%v", ok, err)
	}
}
