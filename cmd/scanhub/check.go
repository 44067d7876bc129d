package main

import (
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that catalog tool binaries are installed",
	Long: `Verify that the binary behind every manifest in the catalog is available
on PATH. Tools with missing binaries will fail at execution time; this
command finds them up front.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		manifests := svcs.reg.List()
		if len(manifests) == 0 {
			fmt.Println("[!] Manifest catalog is empty. Run 'scanhub init' to seed it.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Tool\tBinary\tStatus\tPath")
		fmt.Fprintln(w, "----\t------\t------\t----")

		missing := 0
		for _, m := range manifests {
			status := "[+]"
			path, err := exec.LookPath(m.Binary)
			if err != nil {
				status = "[-]"
				path = "-"
				missing++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Tool, m.Binary, status, path)
		}
		w.Flush()

		fmt.Println()
		fmt.Printf("Summary: %d/%d tool binaries found\n", len(manifests)-missing, len(manifests))
		if missing > 0 {
			return fmt.Errorf("%d tool binaries are missing", missing)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
