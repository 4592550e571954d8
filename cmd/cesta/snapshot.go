package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/cesta/internal/cli"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Record today's catalog prices",
		Long: `Append today's price for every priced catalog product. Products that
already have a price for today are left alone, so running this more than
once a day is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.engine.SnapshotPrices(cmd.Context())
			if err != nil {
				if errors.Is(err, common.ErrCatalogUnavailable) {
					return common.NewUserError("no catalog loaded; set catalog.path or pass --catalog", err)
				}
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Recorded %d prices for %s", n, a.prices.Today())))
			return err
		},
	}
}
