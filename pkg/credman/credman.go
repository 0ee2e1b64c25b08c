// Package credman keeps remote login passwords in the operating system
// keyring, keyed by host and user.
package credman

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const DefaultService = "warpfetch"

var ErrEmptyCredential = errors.New("credman: host and user are required")

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Store reads and writes passwords under one keyring service name.
type Store struct {
	Service string
}

// NewStore returns a Store using DefaultService.
func NewStore() *Store {
	return &Store{Service: DefaultService}
}

func account(host, user string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	user = strings.TrimSpace(user)
	if host == "" || user == "" {
		return "", ErrEmptyCredential
	}
	return user + "@" + host, nil
}

// Password returns the stored password for user on host. ok is false when
// nothing is stored.
func (s *Store) Password(host, user string) (password string, ok bool, err error) {
	acct, err := account(host, user)
	if err != nil {
		return "", false, err
	}
	pw, err := keyringGet(s.Service, acct)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("credman: read %s: %w", acct, err)
	}
	return pw, true, nil
}

// Set stores password for user on host, replacing any previous value.
func (s *Store) Set(host, user, password string) error {
	acct, err := account(host, user)
	if err != nil {
		return err
	}
	if err := keyringSet(s.Service, acct, password); err != nil {
		return fmt.Errorf("credman: write %s: %w", acct, err)
	}
	return nil
}

// Delete removes the password for user on host. Deleting a missing entry
// is not an error.
func (s *Store) Delete(host, user string) error {
	acct, err := account(host, user)
	if err != nil {
		return err
	}
	err = keyringDelete(s.Service, acct)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("credman: delete %s: %w", acct, err)
	}
	return nil
}
