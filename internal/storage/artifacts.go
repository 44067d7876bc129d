package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)

// SanitizeTarget replaces characters unsafe for filesystem paths.
// Allows alphanumeric, dots, and hyphens; everything else becomes underscore.
func SanitizeTarget(target string) string {
	return unsafePathChars.ReplaceAllString(target, "_")
}

// RunArtifactDir generates a consistent directory path for a run's
// captured output. Format: {baseDir}/{target}_{YYYYMMDD}_{HHMMSS}_{runID8}
func RunArtifactDir(baseDir, target, runID string, startedAt time.Time) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	dirName := fmt.Sprintf("%s_%s_%s", SanitizeTarget(target), startedAt.Format("20060102_150405"), short)
	return filepath.Join(baseDir, dirName)
}

// WriteArtifact stores one captured output stream under dir and returns
// the file path for the run record's reference field.
func WriteArtifact(dir, name string, data []byte) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", name, err)
	}
	return path, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
