package cmd

import (
	"fmt"
	"runtime"

	"github.com/rozadev/roza/cmd/common"
	rcommon "github.com/rozadev/roza/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// currentBuildArgs is set by Execute so the daemon can report its version.
var currentBuildArgs BuildArgs

var (
	configPath string
	logFormat  string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config",
			Usage:       "path to the YAML config file",
			Destination: &configPath,
			EnvVar:      rcommon.ConfigEnv,
		},
		cli.StringFlag{
			Name:        "log-format",
			Usage:       "daemon log format: text or json",
			Destination: &logFormat,
			EnvVar:      rcommon.LogFormatEnv,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "roza",
		HelpName:              "roza",
		Usage:                 "Sehri and Aftari countdown and alerts.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "roza [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "run the tracking daemon in the foreground",
				Description:        DaemonDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             daemon,
			},
			{
				Name:   "stop",
				Usage:  "stop the running daemon",
				Action: stopDaemon,
			},
			{
				Name:               "watch",
				Aliases:            []string{"attach", "w"},
				Usage:              "show a live countdown to the next event",
				Description:        WatchDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             watch,
			},
			{
				Name:    "next",
				Aliases: []string{"n"},
				Usage:   "print the next event and the time left",
				Action:  next,
			},
			{
				Name:               "mode",
				Usage:              "show or set the tracking mode",
				UsageText:          "mode [auto|aftari|sehri]",
				Description:        ModeDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             mode,
			},
			{
				Name:               "madhab",
				Usage:              "set the madhab",
				UsageText:          "madhab <Hanafi|Jafri>",
				Description:        MadhabDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             madhab,
			},
			{
				Name:               "location",
				Aliases:            []string{"loc"},
				Usage:              "show or change the tracked location",
				Description:        LocationDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             locationShow,
				Subcommands: []cli.Command{
					{
						Name:   "show",
						Usage:  "print the tracked location",
						Action: locationShow,
					},
					{
						Name:      "search",
						Usage:     "geocode a place name and track it",
						UsageText: "location search <city>",
						Action:    locationSearch,
					},
					{
						Name:         "set",
						Usage:        "track explicit coordinates, or a city",
						UsageText:    "location set [--name NAME] --lat LAT --lon LON | location set <city>",
						Flags:        locationFlags,
						OnUsageError: common.UsageErrorCallback,
						Action:       locationSet,
					},
				},
			},
			{
				Name:               "times",
				Aliases:            []string{"t"},
				Usage:              "print the boundary times for a date",
				UsageText:          "times [YYYY-MM-DD]",
				Description:        TimesDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             times,
			},
			{
				Name:                   "calendar",
				Aliases:                []string{"cal"},
				Usage:                  "print or export the Ramzan calendar",
				Description:            CalendarDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				UseShortOptionHandling: true,
				Flags:                  calendarFlags,
				Action:                 calendarCmd,
			},
			{
				Name:               "unlock",
				Usage:              "allow alerts to play sound",
				Description:        UnlockDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             unlock,
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
				Usage:              "prints installed version of roza",
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
