package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessellate-io/strata/pkg/types"
)

func newComplexTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complextype",
		Short: "Manage complex type declarations",
	}
	cmd.AddCommand(newComplexTypeCreateCmd())
	cmd.AddCommand(newComplexTypeAddPropCmd())
	cmd.AddCommand(newComplexTypeDeleteCmd())
	return cmd
}

func newComplexTypeAddPropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addproperty <type> <json>",
		Short: "Add a property to a declared complex type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decls, err := parsePropertyDecls("[" + args[1] + "]")
			if err != nil {
				return err
			}
			if len(decls) != 1 {
				return fmt.Errorf("expected one property declaration")
			}
			d := decls[0]

			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			p := &types.ComplexTypeProperty{
				Name:           d.Name,
				Type:           d.Type,
				Nullable:       d.Nullable,
				DefaultValue:   d.Default,
				CollectionKind: d.Collection,
			}
			if err := eng.AddComplexTypeProperty(args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added property %s to %s\n", p.Name, args[0])
			return nil
		},
	}
}

func newComplexTypeCreateCmd() *cobra.Command {
	var propsArg string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Declare a new complex type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			ct := &types.ComplexType{Name: args[0]}
			if propsArg != "" {
				decls, err := parsePropertyDecls(propsArg)
				if err != nil {
					return err
				}
				for _, d := range decls {
					ct.Properties = append(ct.Properties, &types.ComplexTypeProperty{
						Name:           d.Name,
						Type:           d.Type,
						Nullable:       d.Nullable,
						DefaultValue:   d.Default,
						CollectionKind: d.Collection,
					})
				}
			}
			if err := eng.DeclareComplexType(ct); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Declared complex type %s\n", ct.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&propsArg, "properties", "", "property declarations as a JSON array")
	return cmd
}

func newComplexTypeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a complex type declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			if err := eng.DeleteComplexType(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted complex type %s\n", args[0])
			return nil
		},
	}
}
