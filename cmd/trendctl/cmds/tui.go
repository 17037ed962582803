package cmds

import (
	"context"
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/markdown"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/go-go-golems/trendctl/pkg/tui"
	"github.com/go-go-golems/trendctl/pkg/tui/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTuiCmd() *cobra.Command {
	var refresh time.Duration
	var altScreen bool
	var light bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive dashboard for trending repositories and pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			if refresh <= 0 {
				refresh = opts.Config.RefreshInterval.Std()
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bus, err := tui.NewInMemoryBus()
			if err != nil {
				return err
			}

			client := opts.Client()
			query := api.TrendingQuery{SortBy: api.SortByScore, Page: 1, PageSize: opts.Config.PageSize}
			watcher := &tui.DashboardWatcher{
				Source:   client,
				Interval: refresh,
				Timeout:  opts.Timeout(),
				Pub:      bus.Publisher,
			}
			watcher.SetQuery(query)

			ctrl, err := opts.NewController(client, tui.RunHooks(bus.Publisher, watcher.Trigger))
			if err != nil {
				return err
			}
			defer ctrl.Close()

			tui.RegisterDomainToUITransformer(bus)
			tui.RegisterUIActionRunner(bus, tui.ActionDeps{
				Controller: ctrl,
				Dashboard:  watcher,
				Timeout:    opts.Timeout(),
			})

			model := models.NewRootModel(models.Options{
				Publisher: bus.Publisher,
				LoadRepo:  client.Repository,
				SetQuery:  watcher.SetQuery,
				Renderer:  markdown.NewRenderer(!light),
				Query:     query,
				Scope:     runstate.NewScope(opts.Config.DefaultScope...),
				Info:      client.BaseURL(),
				Timeout:   opts.Timeout(),
			})
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)
			tui.RegisterUIForwarder(bus, program)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				select {
				case <-bus.Running():
				case <-egCtx.Done():
					return nil
				}
				err := watcher.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				_, err := program.Run()
				ctrl.Close()
				cancel()
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				<-egCtx.Done()
				program.Quit()
				return nil
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "tui")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 0, "Dashboard refresh interval (0 = config refresh_interval)")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	cmd.Flags().BoolVar(&light, "light", false, "Use the light markdown style")
	return cmd
}
