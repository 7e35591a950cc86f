package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessellate-io/strata/pkg/types"
)

// propertyDecl is the JSON shape accepted by --properties.
type propertyDecl struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    any    `json:"default"`
	Collection string `json:"collection"`
	Key        bool   `json:"key"`
	Unique     bool   `json:"unique"`
}

func parsePropertyDecls(arg string) ([]propertyDecl, error) {
	dec := json.NewDecoder(strings.NewReader(arg))
	dec.UseNumber()
	var decls []propertyDecl
	if err := dec.Decode(&decls); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	return decls, nil
}

func newEntityTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entitytype",
		Short: "Manage entity type declarations",
	}
	cmd.AddCommand(newEntityTypeCreateCmd())
	cmd.AddCommand(newEntityTypeListCmd())
	cmd.AddCommand(newEntityTypeAddPropCmd())
	cmd.AddCommand(newEntityTypeDeleteCmd())
	return cmd
}

func newEntityTypeAddPropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addproperty <type> <json>",
		Short: "Add a property to a declared entity type",
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

			p := &types.Property{
				Name:           d.Name,
				Type:           d.Type,
				Nullable:       d.Nullable,
				DefaultValue:   d.Default,
				CollectionKind: d.Collection,
				IsKey:          d.Key,
				IsUnique:       d.Unique,
			}
			if err := eng.AddProperty(args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added property %s to %s\n", p.Name, args[0])
			return nil
		},
	}
}

func newEntityTypeCreateCmd() *cobra.Command {
	var propsArg string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Declare a new entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			et := &types.EntityType{Name: args[0]}
			if propsArg != "" {
				decls, err := parsePropertyDecls(propsArg)
				if err != nil {
					return err
				}
				for _, d := range decls {
					et.Properties = append(et.Properties, &types.Property{
						Name:           d.Name,
						Type:           d.Type,
						Nullable:       d.Nullable,
						DefaultValue:   d.Default,
						CollectionKind: d.Collection,
						IsKey:          d.Key,
						IsUnique:       d.Unique,
					})
				}
			}
			if err := eng.DeclareEntityType(et); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Declared entity type %s\n", et.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&propsArg, "properties", "", "property declarations as a JSON array")
	return cmd
}

func newEntityTypeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			store, release, err := openStorage(log, cfg)
			if err != nil {
				return err
			}
			defer release()

			set, err := store.LoadSchema()
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, set.EntityTypes)
			}
			for _, et := range set.EntityTypes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d properties)\n", et.Name, len(et.Properties))
			}
			return nil
		},
	}
}

func newEntityTypeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an entity type declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			if err := eng.DeleteEntityType(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entity type %s\n", args[0])
			return nil
		},
	}
}
