package cli

import (
	"github.com/spf13/cobra"

	"astrotoken/internal/app"
	"astrotoken/internal/market"
)

var (
	historyPeriod  string
	historyCSVPath string
	historyPNGPath string
)

var historyCmd = &cobra.Command{
	Use:   "history <slug>",
	Short: "Print or export a token's price history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := market.ParsePeriod(historyPeriod)
		if err != nil {
			return err
		}
		return getApp().History(cmd.Context(), app.HistoryOptions{
			Slug:    args[0],
			Period:  period,
			CSVPath: historyCSVPath,
			PNGPath: historyPNGPath,
		})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyPeriod, "period", string(market.DefaultPeriod), "One of 1D, 7D, 30D, 90D, 1Y, ALL")
	historyCmd.Flags().StringVar(&historyCSVPath, "csv", "", "Path to write CSV data")
	historyCmd.Flags().StringVar(&historyPNGPath, "png", "", "Path to write PNG chart")
}
