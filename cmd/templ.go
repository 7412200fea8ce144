package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
roza keeps track of the next Sehri or Aftari for your location,
shows a live countdown to it and sounds an alert the moment it
arrives. A small background daemon does the tracking; the
commands below talk to it.
`

const (
	DaemonDescription = `The daemon command runs the tracker in the foreground. Other
commands start it in the background automatically when it is
not running.

Example:
        roza daemon

`
	WatchDescription = `The watch command attaches to the daemon and shows a live
countdown to the next event until interrupted.

Example:
        roza watch

`
	ModeDescription = `The mode command chooses which event is tracked: "auto" follows
whichever comes next, "sehri" and "aftari" always follow that
event. Without an argument it prints the current mode.

Example:
        roza mode aftari

`
	MadhabDescription = `The madhab command switches between the Hanafi and Jafri
calculation rules. Jafri always uses the Tehran method.

Example:
        roza madhab Jafri

`
	LocationDescription = `The location command shows or changes the tracked location.
A manually chosen location is remembered and takes precedence
over the configured one.

Example:
        roza location show
        roza location search Lahore
        roza location set --lat 31.5656 --lon 74.3142

`
	TimesDescription = `The times command prints the boundary times the daemon is
using for a date (today by default).

Example:
        roza times
        roza times 2026-03-01

`
	CalendarDescription = `The calendar command prints the Sehri and Iftar times for the
whole of Ramzan, or exports them to a .txt, .xlsx or .pdf file.
It does not need the daemon.

Example:
        roza calendar
        roza calendar --export ramzan.xlsx

`
	UnlockDescription = `The unlock command plays a short probe through the local audio
player. Once it succeeds alerts are allowed to play sound.

Example:
        roza unlock

`
)
