package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/scope"
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage authorization scopes",
	Long: `Manage the scopes that decide which targets may be scanned.

A scope is a named allowlist of host patterns (exact names or *.domain
wildcards) and IPv4 CIDR blocks. Targets matching no active scope are
rejected before anything executes.`,
}

var (
	scopeAddHosts string
	scopeAddCIDRs string
)

var scopeAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		sc := models.NewScope(args[0], splitList(scopeAddHosts), splitList(scopeAddCIDRs))
		if len(sc.Hosts) == 0 && len(sc.CIDRs) == 0 {
			return fmt.Errorf("scope needs at least one host pattern or CIDR")
		}
		if err := svcs.store.SaveScope(sc); err != nil {
			return err
		}
		fmt.Printf("[+] Added scope %s (%s)\n", sc.Name, sc.ID)
		return nil
	},
}

var scopeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scopes",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		scopes, err := svcs.store.ListScopes()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tName\tActive\tHosts\tCIDRs")
		fmt.Fprintln(w, "--\t----\t------\t-----\t-----")
		for _, sc := range scopes {
			active := "no"
			if sc.Active {
				active = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				shortID(sc.ID), sc.Name, active,
				strings.Join(sc.Hosts, ","), strings.Join(sc.CIDRs, ","))
		}
		return w.Flush()
	},
}

var scopeCheckCmd = &cobra.Command{
	Use:   "check <target>",
	Short: "Check whether a target is authorized",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		target := args[0]
		if err := scope.Sanitize(target); err != nil {
			fmt.Printf("[!] Rejected: %v\n", err)
			return err
		}
		sc, err := svcs.runs.ResolveScope(target, "")
		if err != nil {
			fmt.Printf("[!] Not authorized: %v\n", err)
			return err
		}
		fmt.Printf("[+] %s is authorized by scope %s (%s)\n", target, sc.Name, shortID(sc.ID))
		return nil
	},
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	scopeAddCmd.Flags().StringVar(&scopeAddHosts, "hosts", "", "comma-separated host patterns (exact or *.domain)")
	scopeAddCmd.Flags().StringVar(&scopeAddCIDRs, "cidrs", "", "comma-separated IPv4 CIDR blocks")
	scopeCmd.AddCommand(scopeAddCmd, scopeListCmd, scopeCheckCmd)
	rootCmd.AddCommand(scopeCmd)
}
