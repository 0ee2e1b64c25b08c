package main

import (
	"errors"
	"os"
	"testing"
)

func TestMainVersion(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"warpfetch", "version"}
	defer func() { os.Args = oldArgs }()
	oldExit := osExit
	exited := -1
	osExit = func(code int) { exited = code }
	defer func() { osExit = oldExit }()
	main()
	if exited != 0 {
		t.Fatalf("unexpected exit code: %d", exited)
	}
}

func TestRunMainError(t *testing.T) {
	code := runMain([]string{"warpfetch"}, func([]string) error {
		return errors.New("boom")
	})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRunMainSuccess(t *testing.T) {
	var got []string
	code := runMain([]string{"warpfetch", "status"}, func(args []string) error {
		got = args
		return nil
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(got) != 2 || got[1] != "status" {
		t.Fatalf("args not forwarded: %v", got)
	}
}
