package main

import (
	"github.com/Veraticus/cesta/internal/cli"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [subcategory]",
		Short: "Browse the catalog categories",
		Long: `Without arguments, list every category with its subcategories. With a
subcategory name, list its products grouped by section.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			c := a.engine.Catalog()
			if c == nil {
				return common.NewUserError("no catalog loaded; set catalog.path or pass --catalog", common.ErrCatalogUnavailable)
			}

			if len(args) == 1 {
				return cli.RenderSubcategory(cmd.OutOrStdout(), args[0], c.Subcategory(args[0]))
			}
			return cli.RenderCategories(cmd.OutOrStdout(), c.Categories())
		},
	}
}
