package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rozadev/roza/cmd/common"
	rcommon "github.com/rozadev/roza/common"
	"github.com/rozadev/roza/pkg/rozacli"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

// watcher redraws the countdown bar from daemon pushes. Handlers run on the
// client's notification goroutine; mu guards against the setup path.
type watcher struct {
	p *mpb.Progress

	mu     sync.Mutex
	kind   string
	target time.Time
	bar    *common.CountdownBar
}

func newWatcher(p *mpb.Progress) *watcher {
	return &watcher{p: p}
}

// track starts a fresh bar for ev, finishing the previous one.
func (w *watcher) track(ev *rcommon.EventResult, cd *rcommon.CountdownResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ev.Kind == w.kind && ev.Target.Equal(w.target) {
		return
	}
	if w.bar != nil {
		w.bar.Abort(false)
	}
	w.kind, w.target = ev.Kind, ev.Target
	name := fmt.Sprintf("%s %s", common.Title(ev.Kind, ev.Title), ev.Target.Format("15:04"))
	total := cd.Remaining / 1000
	w.bar = common.InitCountdownBar(w.p, name, total)
	w.bar.Update(total, cd.Display)
}

func (w *watcher) countdown(cd *rcommon.CountdownResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bar == nil || (cd.Kind != "" && cd.Kind != w.kind) {
		return nil
	}
	w.bar.Update(cd.Remaining/1000, cd.Display)
	return nil
}

func (w *watcher) eventChanged(ev *rcommon.EventResult) error {
	cd := &rcommon.CountdownResult{
		Kind:      ev.Kind,
		Remaining: time.Until(ev.Target).Milliseconds(),
	}
	w.track(ev, cd)
	return nil
}

func (w *watcher) alertFired(n *rcommon.AlertFiredNotification) error {
	msg := fmt.Sprintf("%s time has arrived", n.Kind)
	switch {
	case n.Locked:
		msg += " (sound is locked, run 'roza unlock')"
	case n.Tier == "" && len(n.Errors) > 0:
		msg += " (sound could not be played)"
	}
	fmt.Fprintln(w.p, msg)
	return nil
}

func (w *watcher) unlockChanged(st *rcommon.AudioStateResult) error {
	if st.Unlocked {
		fmt.Fprintln(w.p, "Audio alerts enabled")
	} else {
		fmt.Fprintln(w.p, "Audio alerts locked, run 'roza unlock' to enable them")
	}
	return nil
}

func (w *watcher) register(client *rozacli.Client) {
	client.OnCountdown(w.countdown)
	client.OnEventChanged(w.eventChanged)
	client.OnAlertFired(w.alertFired)
	client.OnUnlockChanged(w.unlockChanged)
}

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	rctx, cancel := requestContext()
	defer cancel()
	client, err := newClient(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "new_client", err)
		return nil
	}
	defer client.Close()

	ev, err := client.NextEvent(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "next_event", explain(err))
		return nil
	}
	cd, err := client.Countdown(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "countdown", err)
		return nil
	}
	st, err := client.AudioState(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "audio_state", err)
		return nil
	}
	if loc, err := client.Location(rctx); err == nil {
		fmt.Printf("Tracking %s\n", loc.Name)
	}
	if !st.Unlocked {
		fmt.Println("Audio alerts are locked, run 'roza unlock' to enable them")
	}
	fmt.Println()

	p := mpb.New(mpb.WithWidth(48), mpb.WithRefreshRate(200*time.Millisecond))
	w := newWatcher(p)
	w.track(ev, cd)
	w.register(client)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = client.Wait(sigCtx)
	p.Shutdown()
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, rozacli.ErrDisconnect):
		common.PrintRuntimeErr(ctx, "watch", "listen", err)
		return nil
	}
	common.PrintRuntimeErr(ctx, "watch", "handler", err)
	return nil
}
