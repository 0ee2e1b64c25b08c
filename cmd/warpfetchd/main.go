// Command warpfetchd runs the prefetch daemon. It is shorthand for
// "warpfetch daemon" and accepts the same flags.
package main

import (
	"fmt"
	"os"

	"github.com/warpdl/warpfetch/cmd"
)

var (
	version   string
	commit    string
	date      string
	buildType = "unclassified"
)

func main() {
	args := append([]string{os.Args[0], "daemon"}, os.Args[1:]...)
	err := cmd.Execute(args, cmd.BuildArgs{
		Version:   version,
		Commit:    commit,
		Date:      date,
		BuildType: buildType,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warpfetchd: %s\n", err.Error())
		os.Exit(1)
	}
}
