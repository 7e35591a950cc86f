package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tessellate-io/strata/internal/paths"
	"github.com/tessellate-io/strata/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend = "backend"
	cfgKeyDataDir = "data_dir"

	cfgKeyMaxProperties = "limits.max_properties_per_entity"
	cfgKeyTopMax        = "limits.top_max"
	cfgKeySkipMax       = "limits.skip_max"
	cfgKeyDefaultTop    = "limits.default_top"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Strata configuration

# Backend selection: sqlite or memory
backend: sqlite

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Engine limits (optional; defaults shown)
# limits:
#   max_properties_per_entity: 400
#   top_max: 10000
#   skip_max: 100000
#   default_top: 25
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper, creating the directory and a default file on first run. A
// missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if missing.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// resolveConfig builds the effective types.Config from flags, environment
// and config.yaml.
func resolveConfig() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, err
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	limits := types.DefaultLimits()
	if v.IsSet(cfgKeyMaxProperties) {
		limits.MaxPropertiesPerEntity = v.GetInt(cfgKeyMaxProperties)
	}
	if v.IsSet(cfgKeyTopMax) {
		limits.TopMax = v.GetInt(cfgKeyTopMax)
	}
	if v.IsSet(cfgKeySkipMax) {
		limits.SkipMax = v.GetInt(cfgKeySkipMax)
	}
	if v.IsSet(cfgKeyDefaultTop) {
		limits.DefaultTop = v.GetInt(cfgKeyDefaultTop)
	}

	cfg := types.Config{
		Backend: v.GetString(cfgKeyBackend),
		DataDir: dataDir,
		Limits:  limits,
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}
