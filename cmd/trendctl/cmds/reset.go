package cmds

import (
	"context"

	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:          "reset",
		Short:        "Delete all ingested repositories and generated content",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete data without --yes")
			}
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			ctrl, err := opts.NewController(opts.Client(), controller.Hooks{})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout())
			defer cancel()
			res, err := ctrl.ClearData(ctx)
			if err != nil {
				return errors.Wrap(err, "reset")
			}
			if res.Message == "" {
				res.Message = controller.MessageCleared
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
