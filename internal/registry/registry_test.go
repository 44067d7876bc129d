package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza/scanhub/internal/models"
)

const nmapManifest = `{
  "tool": "nmap",
  "binary": "nmap",
  "argsSchema": {
    "scanType": {"type": "string", "enum": ["-sV", "-sS"]},
    "ports": {"type": "string", "pattern": "^[0-9,\\-]+$", "default": "1-1000"}
  },
  "commandTemplate": ["nmap", "{{scanType}}", "-p", "{{ports}}", "{{target}}"],
  "timeout": 300,
  "memoryLimit": 512
}`

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "nmap.json", nmapManifest)
	writeManifest(t, dir, "broken.json", "{not json")
	writeManifest(t, dir, "ignored.txt", "not a manifest")

	r, err := Load(dir, nil)
	require.NoError(t, err)

	// Broken documents are skipped, not fatal.
	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "nmap", list[0].Tool)
	assert.Equal(t, 1, list[0].Version)

	m, err := r.Active("nmap")
	require.NoError(t, err)
	assert.Equal(t, "nmap", m.Binary)
	assert.Equal(t, 300, m.TimeoutSeconds)
	assert.Equal(t, "1-1000", m.ArgsSchema["ports"].Default)
}

func TestActiveUnknownTool(t *testing.T) {
	r, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = r.Active("ghost")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegisterVersioning(t *testing.T) {
	r, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	v1 := &models.ToolManifest{Tool: "httpx", Binary: "httpx", CommandTemplate: []string{"httpx", "-u", "{{target}}"}, TimeoutSeconds: 60}
	assert.Equal(t, 1, r.Register(v1))

	// Identical definition does not create a new version.
	assert.Equal(t, 1, r.Register(v1))

	v2 := *v1
	v2.TimeoutSeconds = 120
	assert.Equal(t, 2, r.Register(&v2))

	// Active pointer repointed; old version still retrievable.
	active, err := r.Active("httpx")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, 120, active.TimeoutSeconds)

	old, err := r.Version("httpx", 1)
	require.NoError(t, err)
	assert.Equal(t, 60, old.TimeoutSeconds)
}

func TestLoadRejectsIncompleteManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "no-binary.json", `{"tool": "x", "commandTemplate": ["x"], "timeout": 10}`)
	writeManifest(t, dir, "no-timeout.json", `{"tool": "y", "binary": "y", "commandTemplate": ["y"]}`)

	r, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, r.List())
}
