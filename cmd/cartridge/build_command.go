package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpl-au/cartridge"
	"github.com/jpl-au/cartridge/internal/config"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var out string
	var mode string
	var compressor string

	cmd := &cobra.Command{
		Use:   "build PLAN",
		Short: "Build a cartridge from a JSON plan file",
		Long: `Build validates the plan, checks that every referenced content file is
supplied and nothing else is, then writes a zstd-compressed tar archive.
Nothing is written when validation fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Build.Mode = strings.ToLower(mode)
			}
			if compressor != "" {
				cfg.Build.Compressor = strings.ToLower(compressor)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				out = defaultOutput(args[0])
			}

			fp, err := loadPlan(args[0])
			if err != nil {
				return err
			}
			b := cartridge.New(cfg.BuilderConfig(ctx.log()))

			var m *cartridge.Integrity
			if cfg.Build.Mode == config.ModeStaged {
				m, err = b.BuildStaged(fp, out)
			} else {
				var p *cartridge.Plan
				if p, err = memoryPlan(fp); err != nil {
					return err
				}
				m, err = b.BuildToFile(p, out)
			}
			if err != nil {
				return reportViolations(cmd, err)
			}
			return printBuildSummary(cmd, out, m)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Destination archive (default: plan name with .tar.zst)")
	cmd.Flags().StringVar(&mode, "mode", "", "Override build.mode (stream, staged)")
	cmd.Flags().StringVar(&compressor, "compressor", "", "Override build.compressor (native, command)")
	return cmd
}

func defaultOutput(planPath string) string {
	base := strings.TrimSuffix(planPath, ".json")
	return base + ".tar.zst"
}

// reportViolations lists schema violations one per line on stderr so a
// large plan does not collapse into a single error line.
func reportViolations(cmd *cobra.Command, err error) error {
	var se *cartridge.SchemaError
	if errors.As(err, &se) && len(se.Violations) > 1 {
		w := cmd.ErrOrStderr()
		for _, v := range se.Violations {
			fmt.Fprintf(w, "  %s\n", v)
		}
		return fmt.Errorf("%w: %s: %d violations", cartridge.ErrSchema, se.Subject, len(se.Violations))
	}
	return err
}

func printBuildSummary(cmd *cobra.Command, out string, m *cartridge.Integrity) error {
	info, err := os.Stat(out)
	if err != nil {
		return err
	}
	var content int64
	for _, d := range m.Files {
		content += d.Size
	}
	id, err := cartridge.ContentID(m, cartridge.AlgXXHash3)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Wrote %s\n", out)
	fmt.Fprintf(w, "  entries:    %d\n", len(m.Files)+1)
	fmt.Fprintf(w, "  content:    %s\n", humanize.IBytes(uint64(content)))
	fmt.Fprintf(w, "  compressed: %s\n", humanize.IBytes(uint64(info.Size())))
	fmt.Fprintf(w, "  content id: %s\n", id)
	return nil
}
