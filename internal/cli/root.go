// Package cli implements the librestore command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librestore/internal/logging"
	"github.com/mesh-intelligence/librestore/internal/paths"
	"github.com/mesh-intelligence/librestore/internal/sqlite"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
	// exitPartial reports a restore that finished with item failures.
	exitPartial = 3
	// exitCancelled reports a restore stopped by an interrupt.
	exitCancelled = 130
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	cacheDir  string
	logLevel  string
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags    rootFlags
	settings settings
	logger   zerolog.Logger
}

// NewRootCmd creates the top-level "librestore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "librestore",
		Short: "Restore manga library backups into a local library",
		Long: "librestore merges exported library backups (categories, library entries,\n" +
			"preferences and extension repositories) into a local library without\n" +
			"discarding what is already there.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "library directory (default: platform data dir)")
	pf.StringVar(&a.flags.cacheDir, "cache-dir", "", "cache directory for restore error logs (default: platform cache dir)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newRestoreCmd(a))
	root.AddCommand(newCategoriesCmd(a))

	return root
}

// load reads config.yaml and builds the logger.
func (a *app) load(stderr io.Writer) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return withCode(exitSysError, fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return withCode(exitSysError, err)
	}
	s, err := decodeSettings(v)
	if err != nil {
		return withCode(exitUserError, err)
	}
	s.configDir = configDir
	a.settings = s

	level := a.flags.logLevel
	if level == "" {
		level = s.LogLevel
	}
	logger, err := logging.New(stderr, level)
	if err != nil {
		return withCode(exitUserError, err)
	}
	a.logger = logger
	return nil
}

// resolveDataDir follows flag > config.yaml > env > platform default.
func (a *app) resolveDataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.settings.DataDir)
}

// resolveCacheDir follows flag > config.yaml > env > platform default.
func (a *app) resolveCacheDir() (string, error) {
	return paths.ResolveCacheDir(a.flags.cacheDir, a.settings.CacheDir)
}

// libraryConfig resolves the directories and returns the Attach config.
func (a *app) libraryConfig() (types.Config, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cacheDir, err := a.resolveCacheDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve cache dir: %w", err)
	}
	return types.Config{Backend: a.settings.Backend, DataDir: dataDir, CacheDir: cacheDir}, nil
}

// attachLibrary opens the configured library. The caller must Detach it.
func (a *app) attachLibrary() (*sqlite.Backend, types.Config, error) {
	cfg, err := a.libraryConfig()
	if err != nil {
		return nil, cfg, withCode(exitSysError, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, withCode(exitUserError, fmt.Errorf("config backend %q: %w", cfg.Backend, err))
	}

	lib := sqlite.NewBackend()
	if err := lib.Attach(cfg); err != nil {
		return nil, cfg, withCode(exitSysError, fmt.Errorf("attach library: %w", err))
	}
	return lib, cfg, nil
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "librestore:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "librestore:", err)
	return exitUserError
}

// Execute runs the root command against the process arguments and exits
// with the appropriate code. SIGINT and SIGTERM cancel a running restore.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
