package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hkogrunt/grunt/runner"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressView renders ProgressEvents as a pterm bar on a terminal and as
// plain lines every 10% otherwise.
type progressView struct {
	title     string
	out       io.Writer
	bar       *pterm.ProgressbarPrinter
	tty       bool
	lastTenth int
}

func newProgressView(title string, out io.Writer) *progressView {
	return &progressView{title: title, out: out, tty: isTerminal(out), lastTenth: -1}
}

func (v *progressView) update(e runner.ProgressEvent) {
	if e.Total <= 0 {
		return
	}

	if !v.tty {
		tenth := e.Done * 10 / e.Total
		if tenth != v.lastTenth {
			v.lastTenth = tenth
			fmt.Fprintf(v.out, "%s: %d/%d\n", v.title, e.Done, e.Total)
		}
		return
	}

	if v.bar == nil || v.bar.Total != e.Total {
		v.stop()
		bar, err := pterm.DefaultProgressbar.
			WithTotal(e.Total).
			WithTitle(v.title).
			WithWriter(v.out).
			WithRemoveWhenDone(true).
			Start()
		if err != nil {
			v.tty = false
			return
		}
		v.bar = bar
	}
	if delta := e.Done - v.bar.Current; delta > 0 {
		v.bar.Add(delta)
	}
}

func (v *progressView) stop() {
	if v.bar != nil {
		_, _ = v.bar.Stop()
		v.bar = nil
	}
}

// runOperation starts fn on the supervisor and renders its events until it
// finishes. Cancelling ctx (Ctrl+C) cancels the operation.
func runOperation(ctx context.Context, deps *RootDependencies, kind, title string, fn runner.Func) (any, error) {
	if _, err := deps.Supervisor.Start(ctx, kind, fn); err != nil {
		return nil, err
	}

	view := newProgressView(title, os.Stdout)
	defer view.stop()

	for ev := range deps.Supervisor.Events() {
		switch e := ev.(type) {
		case runner.ProgressEvent:
			if e.Kind == kind {
				view.update(e)
			}
		case runner.DoneEvent:
			if e.Kind != kind {
				continue
			}
			view.stop()
			if e.Err != nil {
				deps.Logger.Error("%s failed after %s: %v", kind, e.Elapsed.Round(time.Millisecond), e.Err)
			} else {
				deps.Logger.System("%s finished in %s", kind, e.Elapsed.Round(time.Millisecond))
			}
			return e.Result, e.Err
		}
	}
	return nil, fmt.Errorf("%s: event channel closed", kind)
}
