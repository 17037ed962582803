package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var categories []string
	var noWait bool

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Start a pipeline run and follow it until it finishes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			scope := runstate.NewScope(categories...)
			if len(categories) == 0 {
				scope = runstate.NewScope(opts.Config.DefaultScope...)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p := &runPrinter{w: cmd.OutOrStdout(), now: time.Now}
			ctrl, err := opts.NewController(opts.Client(), p.hooks())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			final, err := followRun(ctx, ctrl, scope, noWait)
			ctrl.Close()
			if err != nil {
				return err
			}
			return p.finish(final, noWait)
		},
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "Category slug to ingest (repeatable, default: all or config default_scope)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the run has been accepted")
	return cmd
}

// followRun starts a run and, unless noWait is set, waits for it to leave the
// polling phase.
func followRun(ctx context.Context, ctrl *controller.Controller, scope runstate.Scope, noWait bool) (controller.Output, error) {
	if err := ctrl.Start(ctx, scope); err != nil {
		return controller.Output{}, errors.Wrap(err, "start run")
	}
	if noWait || !ctrl.Phase().InFlight() {
		return ctrl.Snapshot(), nil
	}
	out, err := ctrl.Wait(ctx)
	if err != nil {
		return out, errors.Wrap(err, "wait for run")
	}
	return out, nil
}

// runPrinter writes controller side effects as plain lines.
type runPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	now   func() time.Time
	runID string
}

func (p *runPrinter) hooks() controller.Hooks {
	return controller.Hooks{
		OnUpdate: p.update,
		OnStep:   p.step,
	}
}

func (p *runPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "%s  "+format+"\n", append([]any{p.now().Format("15:04:05")}, args...)...)
}

func (p *runPrinter) update(out controller.Output) {
	id := out.RunID()
	if id == "" || out.Phase != controller.PhasePolling {
		return
	}
	p.mu.Lock()
	first := p.runID != id
	p.runID = id
	p.mu.Unlock()
	if first {
		p.printf("run %s started (scope: %s)", id, out.Scope.String())
	}
}

func (p *runPrinter) step(tr runstate.StepTransition) {
	p.printf("%-8s %s", tr.To, tr.Name)
}

func (p *runPrinter) finish(out controller.Output, noWait bool) error {
	switch {
	case out.Phase == controller.PhaseFailed:
		if id := out.RunID(); id != "" {
			return errors.Errorf("run %s failed: %s", id, out.Error)
		}
		return errors.Errorf("run failed: %s", out.Error)
	case out.Error != "":
		return errors.New(out.Error)
	case out.Phase == controller.PhaseCompleted:
		p.printf("run %s succeeded", out.RunID())
		return nil
	case noWait && out.Phase.InFlight():
		p.printf("run %s accepted, not waiting", p.runID)
		return nil
	case out.Message != "":
		return errors.New(out.Message)
	}
	return errors.Errorf("run ended in phase %s", out.Phase)
}
