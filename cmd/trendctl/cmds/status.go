package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <chain-id>",
		Short: "Show the current status of a pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJSON(cmd, func(ctx context.Context, c *api.Client) (any, error) {
				st, err := c.QueryStatus(ctx, args[0])
				if err != nil {
					return nil, err
				}
				done, total := st.Progress()
				return map[string]any{
					"run":      st,
					"done":     done,
					"total":    total,
					"terminal": st.Status.IsTerminal(),
				}, nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJSON(cmd, func(ctx context.Context, c *api.Client) (any, error) {
				return c.Stats(ctx)
			})
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJSON(cmd, func(ctx context.Context, c *api.Client) (any, error) {
				h, err := c.Health(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"api_url": c.BaseURL(), "health": h}, nil
			})
		},
	}
}

func runJSON(cmd *cobra.Command, fetch func(ctx context.Context, c *api.Client) (any, error)) error {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout())
	defer cancel()

	v, err := fetch(ctx, opts.Client())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}
	_, _ = fmt.Fprintln(w, string(b))
	return nil
}
