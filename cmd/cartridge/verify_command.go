package main

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jpl-au/cartridge"
	"github.com/jpl-au/cartridge/internal/policy"
)

// errVerifyFailed is returned once the report has been printed so that the
// process exits non-zero without repeating it.
var errVerifyFailed = errors.New("verification failed")

type verifyResult struct {
	Archive  string            `json:"archive"`
	OK       bool              `json:"ok"`
	Issues   []cartridge.Issue `json:"issues"`
	Findings []policy.Finding  `json:"findings"`
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var counts bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify ARCHIVE",
		Short: "Check an archive against its integrity manifest and content policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()

			c, err := cartridge.Open(args[0])
			if err != nil {
				return err
			}
			report, err := cartridge.ValidateIntegrity(c)
			if err != nil {
				return err
			}
			p := policy.Policy{
				ForbiddenTags: cfg.Verify.ForbiddenTags,
				VideoFields:   cfg.Verify.VideoFields,
				CheckCounts:   cfg.Verify.CheckCounts || counts,
			}
			findings, err := policy.Check(c, p)
			if err != nil {
				return fmt.Errorf("policy: %w", err)
			}
			if findings == nil {
				findings = []policy.Finding{}
			}

			res := verifyResult{
				Archive:  args[0],
				OK:       report.OK && len(findings) == 0,
				Issues:   report.Issues,
				Findings: findings,
			}
			logger.Debug("verified archive", "archive", args[0], "issues", len(res.Issues), "findings", len(res.Findings))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printVerifyResult(cmd, res)
			}
			if !res.OK {
				return errVerifyFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&counts, "counts", false, "Also compare stored unit counts with the lesson tree")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printVerifyResult(cmd *cobra.Command, res verifyResult) {
	w := cmd.OutOrStdout()
	if res.OK {
		fmt.Fprintf(w, "%s: ok\n", res.Archive)
		return
	}
	if len(res.Issues) > 0 {
		rows := make([][]string, 0, len(res.Issues))
		for _, is := range res.Issues {
			rows = append(rows, []string{is.Path, string(is.Kind), is.Message})
		}
		fmt.Fprintln(w, renderTable([]column{{title: "Path"}, {title: "Integrity"}, {title: "Detail"}}, rows, nil))
	}
	if len(res.Findings) > 0 {
		rows := make([][]string, 0, len(res.Findings))
		for _, f := range res.Findings {
			rows = append(rows, []string{f.Path, f.Rule, f.Message})
		}
		fmt.Fprintln(w, renderTable([]column{{title: "Path"}, {title: "Rule"}, {title: "Detail"}}, rows, nil))
	}
	fmt.Fprintf(w, "%s: %d integrity issue(s), %d policy finding(s)\n", res.Archive, len(res.Issues), len(res.Findings))
}
