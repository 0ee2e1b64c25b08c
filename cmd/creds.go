package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/cmd/common"
	"github.com/warpdl/warpfetch/pkg/credman"
)

type passwordStore interface {
	Set(host, user, password string) error
	Delete(host, user string) error
}

// credStore is swapped in tests.
var credStore = func() passwordStore { return credman.NewStore() }

var stdin io.Reader = os.Stdin

func hostUser(ctx *cli.Context) (string, string, error) {
	if ctx.NArg() != 2 {
		return "", "", fmt.Errorf("expected <host> <user>")
	}
	return ctx.Args().Get(0), ctx.Args().Get(1), nil
}

func credsSet(ctx *cli.Context) error {
	host, user, err := hostUser(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	password := ctx.String("password")
	if password == "" {
		fmt.Fprintf(ctx.App.Writer, "Password for %s@%s: ", user, host)
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			common.PrintRuntimeErr(ctx, "creds", "read_password", err)
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("empty password"))
	}
	if err := credStore().Set(host, user, password); err != nil {
		common.PrintRuntimeErr(ctx, "creds", "set", err)
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Stored password for %s@%s\n", user, host)
	return nil
}

func credsDelete(ctx *cli.Context) error {
	host, user, err := hostUser(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	if err := credStore().Delete(host, user); err != nil {
		common.PrintRuntimeErr(ctx, "creds", "delete", err)
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Deleted password for %s@%s\n", user, host)
	return nil
}
