package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
warpfetch prefetches the items just past what a list viewer is showing.
The daemon watches which indices are visible, infers the scroll direction
and keeps a window of upcoming items fetched into a local cache.
`

const (
	DaemonDescription = `The daemon command starts the prefetch daemon. It loads the
catalog, opens the cache and serves JSON-RPC on loopback TCP and a
local socket. Every setting can also be given through the environment.

Example:
        warpfetch daemon --catalog urls.txt --rpc-secret s3cret

`
	SimulateDescription = `The simulate command runs the scheduler offline: it slides a
viewport over the catalog and fetches the prefetch window into a
temporary cache, drawing a progress bar per fetch.

Example:
        warpfetch simulate --viewport 6 --step 2 urls.txt

`
	AppearDescription = `The appear command tells a running daemon that the given
indices became visible.

Example:
        warpfetch appear 10 11 12

`
	DisappearDescription = `The disappear command tells a running daemon that the given
indices are no longer visible.

Example:
        warpfetch disappear 10 11

`
	StatusDescription = `The status command prints the visible indices, the prefetch
window, catalog state and fetch counters of a running daemon.

Example:
        warpfetch status

`
	CredsDescription = `The creds command stores or deletes passwords in the system
keyring. The daemon uses them for ftp and sftp URLs that name a
user without a password.

Example:
        warpfetch creds set files.example.com alice
        warpfetch creds delete files.example.com alice

`
)
