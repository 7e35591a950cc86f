package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessellate-io/strata/pkg/types"
)

// parseEnd splits "EntityType:multiplicity" into an association end.
func parseEnd(arg string) (types.AssociationEnd, error) {
	entityType, mult, ok := strings.Cut(arg, ":")
	if !ok {
		return types.AssociationEnd{}, fmt.Errorf("end %q must be type:multiplicity", arg)
	}
	return types.AssociationEnd{
		Name:         entityType,
		EntityType:   entityType,
		Multiplicity: mult,
	}, nil
}

func newAssociationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "association",
		Short: "Manage association declarations",
	}
	cmd.AddCommand(newAssociationCreateCmd())
	cmd.AddCommand(newAssociationDeleteCmd())
	return cmd
}

func newAssociationCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <typeA:mult> <typeB:mult>",
		Short: "Declare an association between two entity types",
		Long: "Declare a relationship between two entity types with per-side\n" +
			"multiplicities. Multiplicity is one of \"0..1\", \"1\", or \"*\".",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			endA, err := parseEnd(args[1])
			if err != nil {
				return err
			}
			endB, err := parseEnd(args[2])
			if err != nil {
				return err
			}

			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			a := &types.Association{
				Name: args[0],
				Ends: [2]types.AssociationEnd{endA, endB},
			}
			if err := eng.DeclareAssociation(a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Declared association %s\n", a.Name)
			return nil
		},
	}
}

func newAssociationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an association declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			if err := eng.DeleteAssociation(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted association %s\n", args[0])
			return nil
		},
	}
}
