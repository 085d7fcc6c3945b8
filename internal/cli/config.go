package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/librestore/internal/logging"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend  = "backend"
	cfgKeyDataDir  = "data_dir"
	cfgKeyCacheDir = "cache_dir"
	cfgKeyLogLevel = "log_level"
	cfgKeyRestore  = "restore"
)

// settings is the decoded config.yaml.
type settings struct {
	Backend  string               `mapstructure:"backend"`
	DataDir  string               `mapstructure:"data_dir"`
	CacheDir string               `mapstructure:"cache_dir"`
	LogLevel string               `mapstructure:"log_level"`
	Restore  types.RestoreOptions `mapstructure:"restore"`

	configDir string
}

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend  string               `yaml:"backend"`
	DataDir  string               `yaml:"data_dir,omitempty"`
	CacheDir string               `yaml:"cache_dir,omitempty"`
	LogLevel string               `yaml:"log_level"`
	Restore  types.RestoreOptions `yaml:"restore"`
}

const configHeader = `# librestore configuration
#
# data_dir and cache_dir are optional; --data-dir and --cache-dir override them.
# The restore section selects the stages "librestore restore" runs by default.
`

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, logging.DefaultLevel)
	all := types.AllRestoreOptions()
	v.SetDefault(cfgKeyRestore+".categories", all.Categories)
	v.SetDefault(cfgKeyRestore+".app_settings", all.AppSettings)
	v.SetDefault(cfgKeyRestore+".source_settings", all.SourceSettings)
	v.SetDefault(cfgKeyRestore+".library_entries", all.LibraryEntries)
	v.SetDefault(cfgKeyRestore+".extension_repos", all.ExtensionRepoSettings)
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), configFile{}); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
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

func decodeSettings(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml at path unless it exists. Empty
// fields of cfg take their defaults.
func writeConfigIfMissing(path string, cfg configFile) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if cfg.Backend == "" {
		cfg.Backend = types.BackendSQLite
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logging.DefaultLevel
	}
	if !cfg.Restore.AnyEnabled() {
		cfg.Restore = types.AllRestoreOptions()
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
