package main

import (
	"github.com/Veraticus/cesta/internal/cli"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <product id>",
		Short: "Show the recorded price history of a product",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}

	cmd.Flags().Int("days", 0, "only show the last N days")
	cmd.Flags().Bool("trend", false, "summarize the series instead of listing it")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	trend, _ := cmd.Flags().GetBool("trend")

	var sinceDays *int
	if cmd.Flags().Changed("days") {
		days, _ := cmd.Flags().GetInt("days")
		if days < 0 {
			return common.NewUserError("--days cannot be negative", nil)
		}
		sinceDays = &days
	}

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	productID := args[0]
	out := cmd.OutOrStdout()

	if trend {
		t, err := a.engine.GetPriceTrend(productID, sinceDays)
		if err != nil {
			return common.NewUserError("no price history for "+productID, err)
		}
		return cli.RenderTrend(out, t)
	}

	return cli.RenderHistory(out, productID, a.engine.GetPriceHistory(productID, sinceDays))
}
