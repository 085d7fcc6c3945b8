package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the local library",
		Long:  "Create the configuration, library and cache directories, then initialize the library database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	lib, cfg, err := a.attachLibrary()
	if err != nil {
		return err
	}
	if err := lib.Detach(); err != nil {
		return withCode(exitSysError, fmt.Errorf("finalize library: %w", err))
	}

	configPath := filepath.Join(a.settings.configDir, configFileExt)
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"config":    configPath,
			"data_dir":  cfg.DataDir,
			"cache_dir": cfg.CacheDir,
		})
	}

	fmt.Fprintln(out, "Library initialized successfully")
	fmt.Fprintln(out, "  config:", configPath)
	fmt.Fprintln(out, "  data:  ", cfg.DataDir)
	fmt.Fprintln(out, "  cache: ", cfg.CacheDir)
	return nil
}
