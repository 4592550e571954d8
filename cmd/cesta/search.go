package main

import (
	"strings"

	"github.com/Veraticus/cesta/internal/cli"
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Long: `Search product names. Every query word matches whole words or word
prefixes, so "leche ent" finds "Leche Entera".`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntP("limit", "n", 0, "maximum number of results (default: search.default_limit)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return cli.RenderSearchResults(cmd.OutOrStdout(), query, a.engine.Rank(query, limit))
}
