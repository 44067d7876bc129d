package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool manifest catalog",
	Long: `List every tool known to the manifest catalog with its active version,
timeout, and resource limits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		manifests := svcs.reg.List()

		if toolsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(manifests)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Tool\tVersion\tBinary\tTimeout\tMemory\tParams")
		fmt.Fprintln(w, "----\t-------\t------\t-------\t------\t------")
		for _, m := range manifests {
			memory := "-"
			if m.MemoryLimitMB > 0 {
				memory = fmt.Sprintf("%dMB", m.MemoryLimitMB)
			}
			fmt.Fprintf(w, "%s\tv%d\t%s\t%ds\t%s\t%d\n",
				m.Tool, m.Version, m.Binary, m.TimeoutSeconds, memory, len(m.ArgsSchema))
		}
		return w.Flush()
	},
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "output manifests as JSON")
	rootCmd.AddCommand(toolsCmd)
}
