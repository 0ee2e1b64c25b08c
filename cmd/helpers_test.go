package cmd

import (
	"bytes"
	"flag"
	"testing"

	"github.com/urfave/cli"
)

// newTestContext parses args against flags the way the cli app would for a
// single command and captures the command's output.
func newTestContext(t *testing.T, flags []cli.Flag, args ...string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	app := cli.NewApp()
	app.Name = "warpfetch"
	app.HelpName = "warpfetch"
	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = out
	return cli.NewContext(app, set, nil), out
}
