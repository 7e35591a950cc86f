// Package cli implements the strata command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessellate-io/strata/internal/engine"
	"github.com/tessellate-io/strata/internal/memstore"
	"github.com/tessellate-io/strata/internal/sqlite"
	"github.com/tessellate-io/strata/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "strata" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "strata",
		Short: "A dynamic-schema entity store",
		Long: "Strata stores schemaless and schema-validated entities with typed\n" +
			"properties, relationships with cardinality contracts, and a\n" +
			"filterable query surface.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .strata)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .strata-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newEntityTypeCmd())
	root.AddCommand(newComplexTypeCmd())
	root.AddCommand(newAssociationCmd())
	root.AddCommand(newEntityCmd())
	root.AddCommand(newLinkCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps engine errors to user errors and everything else to
// system errors.
func exitCodeFor(err error) int {
	if _, ok := types.AsError(err); ok {
		return exitUserError
	}
	return exitSysError
}

// newLogger builds the CLI logger: development output when --verbose,
// silent otherwise.
func newLogger() *zap.SugaredLogger {
	if !flags.verbose {
		return zap.NewNop().Sugar()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}

// storage is what the engine needs from a backend.
type storage interface {
	types.EntityStore
	types.SchemaStore
}

// openStorage attaches the configured backend and returns it with a
// release function. The caller must defer the release.
func openStorage(log *zap.SugaredLogger, cfg types.Config) (storage, func(), error) {
	switch cfg.Backend {
	case types.BackendMemory:
		return memstore.New(), func() {}, nil
	default:
		backend := sqlite.NewBackend(log)
		if err := backend.Attach(cfg); err != nil {
			return nil, nil, fmt.Errorf("attach backend: %w", err)
		}
		release := func() {
			if err := backend.Detach(); err != nil {
				fmt.Fprintln(os.Stderr, "detach backend:", err)
			}
		}
		return backend, release, nil
	}
}

// openEngine wires storage, registry and engine for one command
// invocation.
func openEngine() (*engine.Engine, func(), error) {
	log := newLogger()
	cfg, err := resolveConfig()
	if err != nil {
		return nil, nil, err
	}
	store, release, err := openStorage(log, cfg)
	if err != nil {
		return nil, nil, err
	}
	registry, err := engine.NewRegistry(store, cfg.Limits, log)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("load schema: %w", err)
	}
	return engine.New(store, registry, cfg.Limits, log), release, nil
}

// printJSON renders v as indented JSON on the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// parsePayload decodes a JSON object argument, keeping numbers as
// json.Number so decimal text survives into coercion.
func parsePayload(arg string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(arg))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return payload, nil
}
