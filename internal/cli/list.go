package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"astrotoken/internal/app"
)

var (
	listLimit   int
	listWatched bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List top tokens by market cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listLimit < 0 {
			return fmt.Errorf("--limit cannot be negative")
		}
		return getApp().List(cmd.Context(), app.ListOptions{Limit: listLimit, WatchedOnly: listWatched})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search listed tokens by name, symbol or slug",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Search(cmd.Context(), strings.Join(args, " "))
	},
}

var showCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show market stats for one token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), args[0])
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum rows to print (0 = all)")
	listCmd.Flags().BoolVar(&listWatched, "watched", false, "Only show watchlist tokens")
}
