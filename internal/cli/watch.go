package cli

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the personal watchlist",
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print watched token slugs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().WatchList(cmd.Context())
	},
}

var watchAddCmd = &cobra.Command{
	Use:   "add <slug>...",
	Short: "Add tokens to the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().WatchAdd(cmd.Context(), args)
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:     "remove <slug>...",
	Aliases: []string{"rm"},
	Short:   "Remove tokens from the watchlist",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().WatchRemove(cmd.Context(), args)
	},
}

func init() {
	watchCmd.AddCommand(watchListCmd, watchAddCmd, watchRemoveCmd)
}
