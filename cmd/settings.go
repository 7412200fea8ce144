package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rozadev/roza/cmd/common"
	rcommon "github.com/rozadev/roza/common"
	"github.com/rozadev/roza/pkg/rozalib"
	"github.com/urfave/cli"
)

func printModeResult(m *rcommon.ModeResult) {
	fmt.Printf("Mode\t\t: %s\n", m.Mode)
	fmt.Printf("Madhab\t\t: %s\n", m.Madhab)
}

func mode(ctx *cli.Context) error {
	arg := strings.TrimSpace(ctx.Args().First())
	if arg == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	// validate locally so a typo does not spawn the daemon
	if arg != "" {
		if _, err := rozalib.ParseTrackingMode(arg); err != nil {
			return common.PrintErrWithCmdHelp(ctx, err)
		}
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "mode", "new_client", err)
		return nil
	}
	defer client.Close()

	if arg == "" {
		m, err := client.Mode(rctx)
		if err != nil {
			common.PrintRuntimeErr(ctx, "mode", "get_mode", err)
			return nil
		}
		printModeResult(m)
		return nil
	}
	m, err := client.SetMode(rctx, strings.ToLower(arg))
	if err != nil {
		common.PrintRuntimeErr(ctx, "mode", "set_mode", err)
		return nil
	}
	printModeResult(m)
	return nil
}

func madhab(ctx *cli.Context) error {
	arg := strings.TrimSpace(ctx.Args().First())
	switch arg {
	case "help":
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	case "":
		return common.PrintErrWithCmdHelp(ctx, errors.New("no madhab provided"))
	}
	m, err := rozalib.ParseMadhab(arg)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "madhab", "new_client", err)
		return nil
	}
	defer client.Close()

	res, err := client.SetMadhab(rctx, string(m))
	if err != nil {
		common.PrintRuntimeErr(ctx, "madhab", "set_madhab", err)
		return nil
	}
	printModeResult(res)
	return nil
}
