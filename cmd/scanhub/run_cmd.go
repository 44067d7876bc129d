package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/runs"
)

var (
	runTool    string
	runTarget  string
	runParams  []string
	runScopeID string
	runTimeout int
	runOwner   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single tool against a target",
	Long: `Run one tool from the manifest catalog against an authorized target.

The target is checked against the unsafe character rules and the active
scopes before anything executes. Parameters are validated against the
tool's schema; unset parameters fall back to their manifest defaults.

Examples:
  scanhub run --tool nmap --target scanme.nmap.org --param scanType=-sV
  scanhub run --tool nuclei --target 10.0.0.5 --param severity=critical,high --timeout 900`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		manifest, err := svcs.reg.Active(runTool)
		if err != nil {
			return err
		}

		params, err := parseParams(runParams, manifest)
		if err != nil {
			return err
		}

		fmt.Printf("[*] Running %s against %s\n", runTool, runTarget)

		run, err := svcs.runs.Launch(cmd.Context(), runs.LaunchSpec{
			Tool:           runTool,
			Target:         runTarget,
			Params:         params,
			Owner:          runOwner,
			ScopeID:        runScopeID,
			TimeoutSeconds: runTimeout,
		})
		if err != nil {
			return err
		}

		if run.Stdout != "" {
			fmt.Print(run.Stdout)
			if !strings.HasSuffix(run.Stdout, "\n") {
				fmt.Println()
			}
		}

		switch run.Status {
		case models.RunCompleted:
			fmt.Printf("[+] Completed in %ds (run %s)\n", run.DurationSeconds, run.ID)
		case models.RunTimeout:
			fmt.Printf("[!] Timed out after %ds (run %s)\n", run.DurationSeconds, run.ID)
			return fmt.Errorf("run timed out")
		default:
			fmt.Printf("[!] Ended %s: %s (run %s)\n", run.Status, run.Error, run.ID)
			return fmt.Errorf("run ended %s", run.Status)
		}
		return nil
	},
}

// parseParams converts key=value flags into typed values using the
// manifest's schema, so numbers and booleans arrive with the right type.
func parseParams(pairs []string, manifest *models.ToolManifest) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}

		spec, known := manifest.ArgsSchema[key]
		if !known {
			out[key] = value
			continue
		}
		switch spec.Type {
		case models.ParamNumber:
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q expects a number: %w", key, err)
			}
			out[key] = n
		case models.ParamBoolean:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("parameter %q expects a boolean: %w", key, err)
			}
			out[key] = b
		default:
			out[key] = value
		}
	}
	return out, nil
}

func init() {
	runCmd.Flags().StringVar(&runTool, "tool", "", "tool name from the manifest catalog")
	runCmd.Flags().StringVar(&runTarget, "target", "", "target host, domain, or IP")
	runCmd.Flags().StringArrayVar(&runParams, "param", nil, "tool parameter as key=value (repeatable)")
	runCmd.Flags().StringVar(&runScopeID, "scope", "", "pin authorization to one scope ID")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "override the manifest timeout in seconds")
	runCmd.Flags().StringVar(&runOwner, "owner", "", "owner recorded on the run")
	runCmd.MarkFlagRequired("tool")
	runCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(runCmd)
}
