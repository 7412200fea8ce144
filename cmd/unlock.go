package cmd

import (
	"fmt"

	"github.com/rozadev/roza/cmd/common"
	"github.com/urfave/cli"
)

func unlock(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "unlock", "new_client", err)
		return nil
	}
	defer client.Close()

	st, err := client.AudioState(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "unlock", "audio_state", err)
		return nil
	}
	if st.Unlocked {
		fmt.Println("Audio alerts are already enabled")
		return nil
	}
	fmt.Println("Playing a test sound...")
	if _, err := client.UnlockAudio(rctx); err != nil {
		common.PrintRuntimeErr(ctx, "unlock", "unlock_audio", err)
		return nil
	}
	fmt.Println("Audio alerts are enabled")
	return nil
}
