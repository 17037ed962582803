package cmds

import (
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newResetCmd())

	trending, err := newTrendingCmd()
	if err != nil {
		return err
	}
	categories, err := newCategoriesCmd()
	if err != nil {
		return err
	}
	root.AddCommand(trending)
	root.AddCommand(categories)

	root.AddCommand(newStatsCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newRepoCmd())
	root.AddCommand(newTuiCmd())
	return nil
}
