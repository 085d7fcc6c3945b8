// Package paths resolves the configuration, library and cache directories.
//
// Every directory follows the same precedence: command-line flag, then the
// config.yaml value where one exists, then an environment variable, then a
// platform default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "librestore"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "LIBRESTORE_CONFIG_DIR"
	EnvDataDir   = "LIBRESTORE_DATA_DIR"
	EnvCacheDir  = "LIBRESTORE_CACHE_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	userCacheDir:  os.UserCacheDir,
}

// xdgDir returns $env/librestore, falling back to ~/<fallback...>/librestore.
func xdgDir(env string, fallback ...string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/librestore (fallback ~/.config/librestore)
// macOS:   ~/Library/Application Support/librestore
// Windows: %APPDATA%/librestore
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the platform-specific default library directory.
//
// Linux:   $XDG_DATA_HOME/librestore (fallback ~/.local/share/librestore)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	}
	return DefaultConfigDir()
}

// DefaultCacheDir returns the platform-specific default cache directory,
// where restore error logs are written.
//
// Linux:   $XDG_CACHE_HOME/librestore (fallback ~/.cache/librestore)
// macOS:   ~/Library/Caches/librestore
// Windows: %LocalAppData%/librestore
func DefaultCacheDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CACHE_HOME", ".cache")
	}
	dir, err := platformDir.userCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory:
// flag > LIBRESTORE_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	return resolve(flag, "", EnvConfigDir, DefaultConfigDir)
}

// ResolveDataDir returns the library directory:
// flag > config.yaml value > LIBRESTORE_DATA_DIR > DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	return resolve(flag, configYAMLValue, EnvDataDir, DefaultDataDir)
}

// ResolveCacheDir returns the cache directory:
// flag > config.yaml value > LIBRESTORE_CACHE_DIR > DefaultCacheDir().
func ResolveCacheDir(flag, configYAMLValue string) (string, error) {
	return resolve(flag, configYAMLValue, EnvCacheDir, DefaultCacheDir)
}

func resolve(flag, configValue, env string, fallback func() (string, error)) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Abs(v)
	}
	return fallback()
}
