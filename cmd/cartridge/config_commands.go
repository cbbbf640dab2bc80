package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cartridge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the annotated sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(path)
			if err != nil {
				return err
			}
			if !overwrite {
				switch _, err := os.Stat(target); {
				case err == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check %s: %w", target, err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the file (default ~/.config/cartridge/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// sampleTarget resolves the init destination, falling back to the default
// config location.
func sampleTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flag)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configSeen {
				source += " (not found, defaults were used)"
			}
			fmt.Fprintf(w, "Config path: %s\n", source)
			fmt.Fprintf(w, "Build mode: %s (%s compressor)\n", cfg.Build.Mode, cfg.Build.Compressor)
			fmt.Fprintln(w, "Configuration valid")
			return nil
		},
	}
}
