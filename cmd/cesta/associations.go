package main

import (
	"fmt"

	"github.com/Veraticus/cesta/internal/cli"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/spf13/cobra"
)

func associationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "associations",
		Aliases: []string{"assoc"},
		Short:   "Manage remembered ticket item matches",
	}

	cmd.AddCommand(associationsListCmd())
	cmd.AddCommand(associationsSetCmd())
	cmd.AddCommand(associationsDeleteCmd())

	return cmd
}

func associationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored associations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return cli.RenderAssociations(cmd.OutOrStdout(), a.engine.ListAssociations())
		},
	}
}

func associationsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <ticket text> <product id>",
		Short: "Remember that a ticket item refers to a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceFlag, _ := cmd.Flags().GetString("source")
			source := model.AssociationSource(sourceFlag)
			if source != model.SourceUser && source != model.SourceSystem {
				return common.NewUserError(fmt.Sprintf("invalid source %q (want user or system)", sourceFlag), nil)
			}

			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			productID := args[1]
			if err := a.engine.RecordAssociationWithSource(cmd.Context(), args[0], &productID, source); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%q → %s", args[0], productID)))
			return err
		},
	}

	cmd.Flags().String("source", string(model.SourceUser), "association source (user, system)")

	return cmd
}

func associationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ticket text>",
		Short: "Forget the association for a ticket item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.RecordAssociation(cmd.Context(), args[0], nil); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Forgot %q", args[0])))
			return err
		},
	}
}
