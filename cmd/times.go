package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/rozadev/roza/cmd/common"
	"github.com/rozadev/roza/pkg/rozalib"
	"github.com/urfave/cli"
)

func times(ctx *cli.Context) error {
	date := strings.TrimSpace(ctx.Args().First())
	if date == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if date != "" {
		if _, err := rozalib.ParseCalendarDate(date); err != nil {
			return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date))
		}
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "times", "new_client", err)
		return nil
	}
	defer client.Close()

	t, err := client.Times(rctx, date)
	if err != nil {
		common.PrintRuntimeErr(ctx, "times", "get_times", explain(err))
		return nil
	}
	txt := fmt.Sprintf("Times for %s (%s, %s)\n", t.Date, t.Method, t.Madhab)
	txt += "\n---------------------------"
	txt += "\n|  Boundary  |    Time    |"
	txt += "\n|------------|------------|"
	rows := []struct {
		name, kind string
		at         time.Time
	}{
		{"Fajr", "SEHRI", t.Fajr},
		{"Sunrise", "", t.Sunrise},
		{"Dhuhr", "", t.Dhuhr},
		{"Asr", "", t.Asr},
		{"Maghrib", "AFTARI", t.Maghrib},
		{"Isha", "", t.Isha},
	}
	for _, r := range rows {
		// pad before colouring, escape codes have no width
		name := common.Beaut(r.name, 10)
		if r.kind != "" {
			name = strings.Replace(name, r.name, common.Title(r.kind, r.name), 1)
		}
		txt += fmt.Sprintf("\n| %s | %s |", name, common.Beaut(r.at.Format(clockLayout), 10))
	}
	txt += "\n---------------------------"
	fmt.Println(txt)
	return nil
}
