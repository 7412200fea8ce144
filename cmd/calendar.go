package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rozadev/roza/cmd/common"
	"github.com/rozadev/roza/internal/config"
	rdaemon "github.com/rozadev/roza/internal/daemon"
	"github.com/rozadev/roza/internal/store"
	"github.com/rozadev/roza/pkg/calendar"
	"github.com/rozadev/roza/pkg/geo"
	"github.com/rozadev/roza/pkg/rozalib"
	"github.com/rozadev/roza/pkg/solar"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

var (
	calExport string
	calStart  string
	calDays   int

	calendarFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "export, e",
			Usage:       "write the calendar to a .txt, .xlsx or .pdf file",
			Destination: &calExport,
		},
		cli.StringFlag{
			Name:        "start, s",
			Usage:       "first day of the calendar as YYYY-MM-DD (default: from config)",
			Destination: &calStart,
		},
		cli.IntFlag{
			Name:        "days, d",
			Usage:       "number of days (default: from config)",
			Destination: &calDays,
		},
	}
)

// calendarFs is where exports are written; replaced in tests.
var calendarFs afero.Fs = afero.NewOsFs()

// newGeocoder builds the geocoding client from cfg; replaced in tests.
var newGeocoder = func(cfg *config.Config) geo.Geocoder {
	return geo.NewClient(geo.Options{
		PrimaryURL:  cfg.Geocoder.PrimaryURL,
		FallbackURL: cfg.Geocoder.FallbackURL,
		UserAgent:   cfg.Geocoder.UserAgent,
	})
}

// calendarOptions merges the flags over the configured calendar.
func calendarOptions(cfg *config.Config) (calendar.Options, error) {
	start := cfg.Calendar.Start
	if calStart != "" {
		start = calStart
	}
	opts := calendar.Options{
		Days:        cfg.Calendar.Days,
		SehriMargin: cfg.Calendar.SehriMargin,
		IftarMargin: cfg.Calendar.IftarMargin,
	}
	if calDays > 0 {
		opts.Days = calDays
	}
	if start != "" {
		d, err := rozalib.ParseCalendarDate(start)
		if err != nil {
			return opts, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		opts.Start = d
	}
	return opts, nil
}

// buildCalendar computes the timetable the daemon would use: the stored
// location and madhab win over the configured ones.
func buildCalendar(ctx context.Context, cfg *config.Config, opts calendar.Options) (*calendar.Table, error) {
	zone, err := cfg.Zone()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	settings, err := st.LoadSettingsOr(ctx, configSettings(cfg))
	if err != nil {
		return nil, err
	}
	loc, err := st.LoadLocation(ctx)
	if errors.Is(err, store.ErrNotFound) {
		r := &geo.Resolver{
			Fixed:    cfg.FixedLocation(),
			City:     cfg.Location.City,
			Geocoder: newGeocoder(cfg),
		}
		loc, err = r.Resolve(ctx)
	}
	if err != nil {
		return nil, err
	}
	rs := rdaemon.RulesetFor(cfg.Tracking.Method, settings.Madhab, loc.CountryCode)
	return calendar.Build(solar.NewCalculator(zone), loc, rs, opts)
}

func calendarCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if calExport != "" {
		if _, err := calendar.FormatFor(calExport); err != nil {
			return common.PrintErrWithCmdHelp(ctx, err)
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "calendar", "load_config", err)
		return nil
	}
	opts, err := calendarOptions(cfg)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	rctx, cancel := requestContext()
	defer cancel()
	t, err := buildCalendar(rctx, cfg, opts)
	if err != nil {
		common.PrintRuntimeErr(ctx, "calendar", "build", err)
		return nil
	}
	if calExport == "" {
		if err := t.WriteText(os.Stdout); err != nil {
			common.PrintRuntimeErr(ctx, "calendar", "print", err)
		}
		return nil
	}
	if err := t.Export(calendarFs, calExport); err != nil {
		common.PrintRuntimeErr(ctx, "calendar", "export", err)
		return nil
	}
	fmt.Printf("Calendar written to %s\n", calExport)
	return nil
}
