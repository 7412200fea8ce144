package cmd

import (
	"errors"
	"fmt"

	"github.com/creachadair/jrpc2"
	"github.com/rozadev/roza/cmd/common"
	rcommon "github.com/rozadev/roza/common"
	"github.com/urfave/cli"
)

const clockLayout = "15:04:05"

// noLocationHint is shown whenever the daemon has nothing to compute with.
const noLocationHint = `no location is set yet, choose one with:
        roza location search <city>
        roza location set --lat LAT --lon LON`

// rpcCode returns the JSON-RPC error code carried by err, or 0.
func rpcCode(err error) int {
	var rerr *jrpc2.Error
	if errors.As(err, &rerr) {
		return int(rerr.Code)
	}
	return 0
}

// explain turns the daemon's well known error codes into user guidance.
func explain(err error) error {
	switch rpcCode(err) {
	case rcommon.CodeNoLocation:
		return errors.New(noLocationHint)
	case rcommon.CodeNoEvent:
		return errors.New("the daemon has not selected an event yet, try again in a moment")
	}
	return err
}

func next(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "next", "new_client", err)
		return nil
	}
	defer client.Close()

	ev, err := client.NextEvent(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "next", "next_event", explain(err))
		return nil
	}
	cd, err := client.Countdown(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "next", "countdown", err)
		return nil
	}
	fmt.Printf("%s at %s\n", common.Title(ev.Kind, ev.Title), ev.Target.Format(clockLayout))
	if cd.Expired {
		fmt.Println("Time left\t: now")
		return nil
	}
	fmt.Printf("Time left\t: %s\n", cd.Display)
	return nil
}
