package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/orchestrator"
)

var (
	scanTarget    string
	scanObjective string
	scanScopeID   string
	scanOwner     string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a multi-step smart scan against a target",
	Long: `Plan and run a smart-scan session: an ordered series of tool steps
selected by the objective.

Objectives:
  quick          fast port discovery plus HTTP probing
  comprehensive  subdomains, full port range, probing, vulnerability scan
  stealth        slow timing templates to stay quiet
  aggressive     wide and loud, full vulnerability coverage

Only one session runs at a time; a second scan is rejected while one is
in progress.

Examples:
  scanhub scan --target scanme.nmap.org --objective quick
  scanhub scan --target 10.0.0.5 --objective comprehensive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		// ── 1. Plan the session ───────────────────────────────────────────
		session, err := svcs.orch.Create(orchestrator.CreateSpec{
			Target:    scanTarget,
			Objective: models.Objective(scanObjective),
			Owner:     scanOwner,
			ScopeID:   scanScopeID,
		})
		if err != nil {
			return err
		}

		fmt.Printf("[*] Planned %s scan of %s (%d steps, session %s)\n",
			session.Objective, session.Target, len(session.Steps), session.ID)
		for _, step := range session.Steps {
			fmt.Printf("    %d. %s (%s)\n", step.Number, step.Phase, step.Tool)
		}

		// ── 2. Subscribe before starting so no event is missed ────────────
		events, unsubscribe := svcs.hub.Subscribe(session.ID)
		defer unsubscribe()

		if _, err := svcs.orch.Start(session.ID); err != nil {
			return err
		}

		// ── 3. Follow the stream until the terminal event ─────────────────
		for ev := range events {
			printEvent(ev)
		}

		final, err := svcs.orch.Get(session.ID)
		if err != nil {
			return err
		}
		if final.Status != models.SessionCompleted {
			return fmt.Errorf("scan ended %s: %s", final.Status, final.Error)
		}
		return nil
	},
}

func printEvent(ev models.StatusEvent) {
	switch ev.Type {
	case models.EventToolStart:
		if data, ok := ev.Data.(models.ToolStartData); ok {
			fmt.Printf("[*] Step %d: %s (%s)\n", data.Step, data.Phase, data.Tool)
		}
	case models.EventToolComplete:
		if data, ok := ev.Data.(models.ToolCompleteData); ok {
			marker := "[+]"
			if data.Status != models.RunCompleted {
				marker = "[!]"
			}
			fmt.Printf("%s %s ended %s in %ds\n", marker, data.Tool, data.Status, data.DurationSeconds)
		}
	case models.EventOutputChunk:
		if data, ok := ev.Data.(models.OutputChunkData); ok {
			fmt.Print(data.Chunk)
			if !strings.HasSuffix(data.Chunk, "\n") {
				fmt.Println()
			}
		}
	case models.EventProgress:
		if data, ok := ev.Data.(models.ProgressData); ok {
			fmt.Printf("[*] Progress: %d%%\n", data.Progress)
		}
	case models.EventCompleted:
		fmt.Println("[+] Scan completed")
	case models.EventFailed:
		if data, ok := ev.Data.(models.FailedData); ok {
			fmt.Printf("[!] Scan failed: %s\n", data.Reason)
		}
	}
}

func init() {
	scanCmd.Flags().StringVar(&scanTarget, "target", "", "target host, domain, or IP")
	scanCmd.Flags().StringVar(&scanObjective, "objective", "quick", "scan objective: quick, comprehensive, stealth, aggressive")
	scanCmd.Flags().StringVar(&scanScopeID, "scope", "", "pin authorization to one scope ID")
	scanCmd.Flags().StringVar(&scanOwner, "owner", "", "owner recorded on the session")
	scanCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(scanCmd)
}
