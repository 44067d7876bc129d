package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/config"
	"github.com/hamza/scanhub/internal/storage"
)

var (
	initForce bool
	initDir   string
)

// seedManifests are starter tool definitions written by 'scanhub init' so a
// fresh installation can run something immediately. Operators are expected
// to tune or replace them.
var seedManifests = map[string]string{
	"nmap.json": `{
  "tool": "nmap",
  "binary": "nmap",
  "argsSchema": {
    "scanType": {"type": "string", "enum": ["-sT", "-sS", "-sV", "-sU"]},
    "ports": {"type": "string", "pattern": "^[0-9,\\-]+$", "default": "1-1000"},
    "timing": {"type": "string", "enum": ["-T1", "-T2", "-T3", "-T4"]},
    "aggressive": {"type": "boolean"}
  },
  "commandTemplate": ["nmap", "{{scanType}}", "{{timing}}", "-A{{aggressive}}", "-p", "{{ports}}", "{{target}}"],
  "timeout": 600,
  "memoryLimit": 512
}`,
	"masscan.json": `{
  "tool": "masscan",
  "binary": "masscan",
  "argsSchema": {
    "ports": {"type": "string", "pattern": "^[0-9,\\-]+$", "default": "1-65535"},
    "rate": {"type": "number", "default": 1000}
  },
  "commandTemplate": ["masscan", "-p{{ports}}", "--rate", "{{rate}}", "{{target}}"],
  "timeout": 900,
  "memoryLimit": 512
}`,
	"httpx.json": `{
  "tool": "httpx",
  "binary": "httpx",
  "argsSchema": {
    "rateLimit": {"type": "number"}
  },
  "commandTemplate": ["httpx", "-silent", "-rl", "{{rateLimit}}", "-u", "{{target}}"],
  "timeout": 300,
  "memoryLimit": 256
}`,
	"subfinder.json": `{
  "tool": "subfinder",
  "binary": "subfinder",
  "argsSchema": {},
  "commandTemplate": ["subfinder", "-silent", "-d", "{{target}}"],
  "timeout": 300,
  "memoryLimit": 256
}`,
	"nuclei.json": `{
  "tool": "nuclei",
  "binary": "nuclei",
  "argsSchema": {
    "severity": {"type": "string", "pattern": "^[a-z,]+$", "default": "critical,high"}
  },
  "commandTemplate": ["nuclei", "-silent", "-severity", "{{severity}}", "-u", "{{target}}"],
  "timeout": 1800,
  "memoryLimit": 1024
}`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize scanhub with default configuration",
	Long: `Creates a default configuration file (scanhub.yaml), the manifest and
artifact directories with a starter tool catalog, and the database for
run and session records.

This is typically the first command you run when setting up scanhub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := filepath.Join(initDir, "scanhub.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s. Use --force to overwrite", configPath)
		}

		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Printf("Created %s with default configuration\n", configPath)

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Manifest directory with the starter catalog
		if err := storage.EnsureDir(cfg.ManifestDir); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
		for name, doc := range seedManifests {
			path := filepath.Join(cfg.ManifestDir, name)
			if _, err := os.Stat(path); err == nil && !initForce {
				continue
			}
			if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
				return fmt.Errorf("failed to write manifest %s: %w", name, err)
			}
		}
		fmt.Printf("Created manifest directory with %d starter tools: %s\n", len(seedManifests), cfg.ManifestDir)

		if err := storage.EnsureDir(cfg.ArtifactDir); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
		fmt.Printf("Created artifact directory: %s\n", cfg.ArtifactDir)

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		fmt.Printf("Initialized database: %s\n", cfg.DBPath)

		fmt.Println()
		fmt.Println("ScanHub initialized successfully!")
		fmt.Println("Add a scope with 'scanhub scope add', then 'scanhub check' to verify tools.")

		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "output directory")
	rootCmd.AddCommand(initCmd)
}
