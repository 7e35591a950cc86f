package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessellate-io/strata/internal/engine"
	"github.com/tessellate-io/strata/pkg/types"
)

func newEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entity instances",
	}
	cmd.AddCommand(newEntityCreateCmd())
	cmd.AddCommand(newEntityGetCmd())
	cmd.AddCommand(newEntityListCmd())
	cmd.AddCommand(newEntityUpdateCmd())
	cmd.AddCommand(newEntityMergeCmd())
	cmd.AddCommand(newEntityDeleteCmd())
	return cmd
}

// printResult renders one entity result, JSON or terse.
func printResult(cmd *cobra.Command, eng *engine.Engine, res *engine.Result) error {
	if flags.jsonMode {
		doc := engine.SerializeEntity(eng.Schema(), res.Entity)
		doc[types.FieldMetadata] = map[string]any{
			"type": res.Entity.Type,
			"etag": res.ETag,
		}
		return printJSON(cmd, doc)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (etag %s)\n", res.Entity.ID, res.ETag)
	return nil
}

func newEntityCreateCmd() *cobra.Command {
	var via string
	cmd := &cobra.Command{
		Use:   "create <type> <json>",
		Short: "Create an entity instance",
		Long: "Create an instance of a declared entity type from a JSON payload.\n" +
			"With --via SrcType:id:_NavProp the instance is created through a\n" +
			"navigation property and linked to the source in one operation.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[1])
			if err != nil {
				return err
			}

			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			var res *engine.Result
			if via != "" {
				srcType, srcID, navProp, err := parseVia(via)
				if err != nil {
					return err
				}
				res, err = eng.CreateEntityViaNavProp(srcType, srcID, navProp, payload)
				if err != nil {
					return err
				}
			} else {
				res, err = eng.CreateEntity(args[0], payload)
				if err != nil {
					return err
				}
			}
			return printResult(cmd, eng, res)
		},
	}
	cmd.Flags().StringVar(&via, "via", "", "create through a navigation property (SrcType:id:_NavProp)")
	return cmd
}

func newEntityGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Retrieve an entity instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			res, err := eng.GetEntity(args[0], args[1])
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printResult(cmd, eng, res)
			}
			return printJSON(cmd, engine.SerializeEntity(eng.Schema(), res.Entity))
		},
	}
}

func newEntityListCmd() *cobra.Command {
	var opts engine.QueryOptions
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List entity instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			lr, err := eng.ListEntities(args[0], opts)
			if err != nil {
				return err
			}
			return printListResult(cmd, eng, lr)
		},
	}
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "$filter expression")
	cmd.Flags().StringVar(&opts.OrderBy, "orderby", "", "$orderby expression")
	cmd.Flags().StringVar(&opts.Top, "top", "", "$top page size")
	cmd.Flags().StringVar(&opts.Skip, "skip", "", "$skip offset")
	cmd.Flags().StringVar(&opts.InlineCount, "inlinecount", "", "$inlinecount mode (none or allpages)")
	return cmd
}

// printListResult renders a page of entities plus the optional total.
func printListResult(cmd *cobra.Command, eng *engine.Engine, lr *engine.ListResult) error {
	if flags.jsonMode {
		docs := make([]map[string]any, len(lr.Entities))
		for i, e := range lr.Entities {
			docs[i] = engine.SerializeEntity(eng.Schema(), e)
		}
		out := map[string]any{"results": docs}
		if lr.Count != nil {
			out["count"] = *lr.Count
		}
		return printJSON(cmd, out)
	}
	for _, e := range lr.Entities {
		fmt.Fprintln(cmd.OutOrStdout(), e.ID)
	}
	if lr.Count != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", *lr.Count)
	}
	return nil
}

func newEntityUpdateCmd() *cobra.Command {
	var ifMatch string
	cmd := &cobra.Command{
		Use:   "update <type> <id> <json>",
		Short: "Replace an entity instance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[2])
			if err != nil {
				return err
			}

			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			res, err := eng.UpdateEntity(args[0], args[1], payload, ifMatch)
			if err != nil {
				return err
			}
			return printResult(cmd, eng, res)
		},
	}
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "version token (use * to skip the check)")
	return cmd
}

func newEntityMergeCmd() *cobra.Command {
	var ifMatch string
	cmd := &cobra.Command{
		Use:   "merge <type> <id> <json>",
		Short: "Partially update an entity instance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[2])
			if err != nil {
				return err
			}

			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			res, err := eng.MergeEntity(args[0], args[1], payload, ifMatch)
			if err != nil {
				return err
			}
			return printResult(cmd, eng, res)
		},
	}
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "version token (use * to skip the check)")
	return cmd
}

func newEntityDeleteCmd() *cobra.Command {
	var ifMatch string
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete an entity instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			if err := eng.DeleteEntity(args[0], args[1], ifMatch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "version token (use * to skip the check)")
	return cmd
}
