package common

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

func newTestContext(args ...string) *cli.Context {
	app := cli.NewApp()
	app.Name = "warpfetch"
	app.HelpName = "warpfetch"
	app.Version = "test"
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	_ = set.Parse(args)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: "cmd"}
	return ctx
}

func stubHelp(t *testing.T, cmdErr error) (appCalls, cmdCalls *int) {
	t.Helper()
	var a, c int
	origApp, origCmd := showAppHelpAndExit, showCommandHelp
	showAppHelpAndExit = func(*cli.Context, int) { a++ }
	showCommandHelp = func(*cli.Context, string) error { c++; return cmdErr }
	t.Cleanup(func() {
		showAppHelpAndExit, showCommandHelp = origApp, origCmd
	})
	return &a, &c
}

func TestNewFetchBar(t *testing.T) {
	p := mpb.New(mpb.WithOutput(io.Discard))
	known := NewFetchBar(p, "#1", 100)
	known.IncrBy(100)
	unknown := NewFetchBar(p, "#2", -1)
	unknown.IncrBy(10)
	unknown.SetTotal(-1, true)
	p.Wait()
	if !known.Completed() || !unknown.Completed() {
		t.Fatal("bars did not complete")
	}
}

func TestPrintRuntimeErr(t *testing.T) {
	PrintRuntimeErr(nil, "cmd", "action", nil)
	PrintRuntimeErr(newTestContext(), "cmd", "action", errors.New("boom"))
}

func TestPrintErrWithHelp(t *testing.T) {
	app, _ := stubHelp(t, nil)
	if err := PrintErrWithHelp(newTestContext(), errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
	if *app != 1 {
		t.Fatalf("app help calls = %d", *app)
	}
	if err := PrintErrWithHelp(newTestContext(), nil); err != nil || *app != 1 {
		t.Fatal("nil error should print nothing")
	}
}

func TestPrintErrWithHelp_HelpRequested(t *testing.T) {
	app, _ := stubHelp(t, nil)
	if err := PrintErrWithHelp(newTestContext(), errors.New("flag: help requested")); err != nil {
		t.Fatal(err)
	}
	if *app != 1 {
		t.Fatalf("app help calls = %d", *app)
	}
}

func TestPrintErrWithCmdHelp(t *testing.T) {
	_, cmd := stubHelp(t, errors.New("no such command"))
	if err := PrintErrWithCmdHelp(newTestContext(), errors.New("oops")); err != nil {
		t.Fatal(err)
	}
	if *cmd != 1 {
		t.Fatalf("command help calls = %d", *cmd)
	}
}

func TestUsageErrorCallback(t *testing.T) {
	app, cmd := stubHelp(t, nil)
	ctx := newTestContext()
	_ = UsageErrorCallback(ctx, errors.New("bad flag"), false)
	ctx.Command = cli.Command{}
	_ = UsageErrorCallback(ctx, errors.New("bad flag"), false)
	if *cmd != 1 || *app != 1 {
		t.Fatalf("cmd=%d app=%d, want 1 each", *cmd, *app)
	}
}

func TestHelp(t *testing.T) {
	app, cmd := stubHelp(t, nil)
	_ = Help(newTestContext())
	_ = Help(newTestContext("status"))
	if *app != 1 || *cmd != 1 {
		t.Fatalf("app=%d cmd=%d", *app, *cmd)
	}
}

func TestHelp_UnknownCommand(t *testing.T) {
	app, _ := stubHelp(t, errors.New("no help topic"))
	if err := Help(newTestContext("nope")); err != nil {
		t.Fatal(err)
	}
	if *app != 1 {
		t.Fatalf("app help calls = %d", *app)
	}
}

func TestGetVersion(t *testing.T) {
	VersionCmdStr = "warpfetch test"
	if err := GetVersion(newTestContext()); err != nil {
		t.Fatal(err)
	}
}
