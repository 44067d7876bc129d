package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyTarget string
	historyScans  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs and scan sessions",
	Long: `List past tool runs, newest first, optionally filtered by target.
With --scans, list smart-scan sessions instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		if historyScans {
			sessions, err := svcs.orch.List()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tTarget\tObjective\tStatus\tProgress\tCreated")
			fmt.Fprintln(w, "--\t------\t---------\t------\t--------\t-------")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
					shortID(s.ID), s.Target, s.Objective, s.Status, s.Progress,
					s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		}

		runs, err := svcs.runs.List(historyTarget)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tTool\tTarget\tStatus\tDuration\tCreated")
		fmt.Fprintln(w, "--\t----\t------\t------\t--------\t-------")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%ds\t%s\n",
				shortID(r.ID), r.Tool, r.Target, r.Status, r.DurationSeconds,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyTarget, "target", "", "filter runs by target")
	historyCmd.Flags().BoolVar(&historyScans, "scans", false, "list scan sessions instead of runs")
	rootCmd.AddCommand(historyCmd)
}
