package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize strata storage",
		Long:  "Create configuration and data directories, then initialize the storage backend.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	store, release, err := openStorage(log, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer release()

	// Touching the schema forces the database file and tables into
	// existence.
	if _, err := store.LoadSchema(); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Strata initialized successfully")
	return nil
}
