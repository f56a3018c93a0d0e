package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cutagent/internal/config"
	"cutagent/internal/services"
)

type configInitOutput struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

type configValidateOutput struct {
	Valid      bool   `json:"valid"`
	Path       string `json:"path"`
	Exists     bool   `json:"exists"`
	ScratchDir string `json:"scratch_dir"`
	StateDir   string `json:"state_dir"`
	Database   string `json:"database,omitempty"`
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(targetPath)
			if err != nil {
				return fail(cmd, err, services.ExitSystem)
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fail(cmd, fmt.Errorf("create config directory %q: %w", dir, err), services.ExitSystem)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fail(cmd, services.New(services.CodeOutputAlreadyExists,
						"Config file already exists at "+target, map[string]any{"path": target}).
						WithRecovery("Use --overwrite to replace it"), services.ExitValidation)
				} else if !os.IsNotExist(err) {
					return fail(cmd, fmt.Errorf("check config path: %w", err), services.ExitSystem)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fail(cmd, fmt.Errorf("create sample config: %w", err), services.ExitSystem)
			}
			return writeJSON(cmd, configInitOutput{Path: target, Created: true})
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func configTarget(targetPath string) (string, error) {
	target := strings.TrimSpace(targetPath)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fail(cmd, fmt.Errorf("load config: %w", err), services.ExitSystem)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fail(cmd, fmt.Errorf("ensure directories: %w", err), services.ExitSystem)
			}
			out := configValidateOutput{
				Valid:      true,
				Path:       path,
				Exists:     exists,
				ScratchDir: cfg.ScratchRoot(),
				StateDir:   cfg.Paths.StateDir,
			}
			if cfg.Store.Enabled {
				out.Database = cfg.DatabasePath()
			}
			return writeJSON(cmd, out)
		},
	}
}
