package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessellate-io/strata/internal/engine"
)

// parseVia splits "SrcType:id:_NavProp" into its parts.
func parseVia(arg string) (srcType, srcID, navProp string, err error) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("via %q must be SrcType:id:_NavProp", arg)
	}
	return parts[0], parts[1], parts[2], nil
}

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage links between entity instances",
	}
	cmd.AddCommand(newLinkCreateCmd())
	cmd.AddCommand(newLinkDeleteCmd())
	cmd.AddCommand(newLinkListCmd())
	return cmd
}

func newLinkCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <srcType> <srcID> <tgtType> <tgtID>",
		Short: "Link two entity instances",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			if err := eng.CreateLink(args[0], args[1], args[2], args[3]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s:%s to %s:%s\n", args[0], args[1], args[2], args[3])
			return nil
		},
	}
}

func newLinkDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <srcType> <srcID> <tgtType> <tgtID>",
		Short: "Remove the link between two entity instances",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			if err := eng.DeleteLink(args[0], args[1], args[2], args[3]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlinked %s:%s from %s:%s\n", args[0], args[1], args[2], args[3])
			return nil
		},
	}
}

func newLinkListCmd() *cobra.Command {
	var opts engine.QueryOptions
	cmd := &cobra.Command{
		Use:   "list <srcType> <srcID> <navProp>",
		Short: "List instances linked through a navigation property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, release, err := openEngine()
			if err != nil {
				return err
			}
			defer release()

			lr, err := eng.ListLinked(args[0], args[1], args[2], opts)
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
