//go:build darwin || freebsd || linux

package cache

import (
	"errors"
	"testing"
)

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if err := checkDiskSpace(dir, -1); err != nil {
		t.Errorf("unknown size should pass: %v", err)
	}
	if err := checkDiskSpace(dir, 1); err != nil {
		t.Errorf("one byte should fit: %v", err)
	}
	if err := checkDiskSpace(dir, 1<<62); !errors.Is(err, ErrInsufficientDiskSpace) {
		t.Errorf("huge size = %v, want ErrInsufficientDiskSpace", err)
	}
	if err := checkDiskSpace("/definitely/not/here", 1<<62); err != nil {
		t.Errorf("stat failure should pass: %v", err)
	}
}
