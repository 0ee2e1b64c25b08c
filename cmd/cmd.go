// Package cmd implements the warpfetch command line.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "warpfetch",
		HelpName:              "warpfetch",
		Usage:                 "Windowed prefetching for scrolling lists.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "warpfetch <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "run the prefetch daemon",
				Description:        DaemonDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             daemon,
				Flags:              daemonFlags,
			},
			{
				Name:               "simulate",
				Aliases:            []string{"sim"},
				Usage:              "scroll through a catalog offline",
				UsageText:          "[options] <catalog>",
				Description:        SimulateDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             simulate,
				Flags:              simulateFlags,
			},
			{
				Name:               "appear",
				Usage:              "mark indices visible",
				UsageText:          "<index>...",
				Description:        AppearDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             appear,
				Flags:              clientFlags,
			},
			{
				Name:               "disappear",
				Usage:              "mark indices hidden",
				UsageText:          "<index>...",
				Description:        DisappearDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             disappear,
				Flags:              clientFlags,
			},
			{
				Name:               "status",
				Aliases:            []string{"st"},
				Usage:              "show daemon state",
				Description:        StatusDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             status,
				Flags:              clientFlags,
			},
			{
				Name:               "creds",
				Usage:              "manage ftp/sftp passwords",
				Description:        CredsDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Subcommands: []cli.Command{
					{
						Name:      "set",
						Usage:     "store a password",
						UsageText: "<host> <user>",
						Action:    credsSet,
						Flags:     credsSetFlags,
					},
					{
						Name:      "delete",
						Usage:     "remove a password",
						UsageText: "<host> <user>",
						Action:    credsDelete,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of warpfetch",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      common.Help,
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
