// Package registry loads tool manifests from a directory of JSON
// documents and tracks versions: each tool has exactly one active manifest
// version at a time, updates append a new version and repoint the active
// pointer, and nothing is ever mutated in place.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/models"
)

// ErrUnknownTool is returned when no manifest exists for a tool.
var ErrUnknownTool = errors.New("unknown tool")

// Registry holds every loaded manifest version, keyed by tool name.
type Registry struct {
	mu       sync.RWMutex
	dir      string
	versions map[string][]*models.ToolManifest // ascending by version
	active   map[string]int                    // tool -> active version
	log      *logrus.Entry
}

// Load reads every *.json manifest document under dir. Files that fail to
// parse are skipped with a warning so one broken manifest cannot take the
// whole catalog down.
func Load(dir string, log *logrus.Entry) (*Registry, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Registry{
		dir:      dir,
		versions: make(map[string][]*models.ToolManifest),
		active:   make(map[string]int),
		log:      log,
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// reload re-reads the manifest directory, registering changed documents as
// new versions.
func (r *Registry) reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("registry: reading manifest dir %s: %w", r.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			r.log.WithError(err).WithField("file", name).Warn("skipping unreadable manifest")
			continue
		}

		var m models.ToolManifest
		if err := json.Unmarshal(data, &m); err != nil {
			r.log.WithError(err).WithField("file", name).Warn("skipping malformed manifest")
			continue
		}
		if err := ValidateManifest(&m); err != nil {
			r.log.WithError(err).WithField("file", name).Warn("skipping invalid manifest")
			continue
		}

		r.Register(&m)
	}
	return nil
}

// Register adds a manifest as the tool's newest version and repoints the
// active pointer to it. Re-registering an identical document is a no-op.
// The assigned version is returned.
func (r *Registry) Register(m *models.ToolManifest) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.versions[m.Tool]
	if len(existing) > 0 && sameDefinition(existing[len(existing)-1], m) {
		return existing[len(existing)-1].Version
	}

	cp := *m
	cp.Version = len(existing) + 1
	cp.CreatedAt = time.Now()
	r.versions[m.Tool] = append(existing, &cp)
	r.active[m.Tool] = cp.Version

	r.log.WithFields(logrus.Fields{
		"tool":    cp.Tool,
		"version": cp.Version,
	}).Info("registered tool manifest")

	return cp.Version
}

// Active returns the tool's active manifest version.
func (r *Registry) Active(tool string) (*models.ToolManifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, ok := r.active[tool]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	return r.versions[tool][version-1], nil
}

// Version returns one specific manifest version of a tool.
func (r *Registry) Version(tool string, version int) (*models.ToolManifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, ok := r.versions[tool]
	if !ok || version < 1 || version > len(all) {
		return nil, fmt.Errorf("%w: %q v%d", ErrUnknownTool, tool, version)
	}
	return all[version-1], nil
}

// List returns the active manifest of every known tool, sorted by name.
func (r *Registry) List() []*models.ToolManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ToolManifest, 0, len(r.active))
	for tool, version := range r.active {
		out = append(out, r.versions[tool][version-1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}

// Watch reloads the registry whenever the manifest directory changes.
// It blocks until done is closed.
func (r *Registry) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("registry: watching %s: %w", r.dir, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			r.log.WithField("file", filepath.Base(event.Name)).Info("manifest change detected, reloading")
			if err := r.reload(); err != nil {
				r.log.WithError(err).Warn("manifest reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.WithError(err).Warn("manifest watcher error")
		}
	}
}

// ValidateManifest enforces the minimum shape a manifest document needs
// before it can build commands.
func ValidateManifest(m *models.ToolManifest) error {
	var errs []error
	if m.Tool == "" {
		errs = append(errs, errors.New("tool name is required"))
	}
	if m.Binary == "" {
		errs = append(errs, errors.New("binary is required"))
	}
	if len(m.CommandTemplate) == 0 {
		errs = append(errs, errors.New("commandTemplate must not be empty"))
	}
	if m.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	return errors.Join(errs...)
}

// sameDefinition compares the operator-controlled fields of two manifests,
// ignoring assigned version and timestamps.
func sameDefinition(a, b *models.ToolManifest) bool {
	return a.Binary == b.Binary &&
		a.TimeoutSeconds == b.TimeoutSeconds &&
		a.MemoryLimitMB == b.MemoryLimitMB &&
		a.CPULimit == b.CPULimit &&
		reflect.DeepEqual(a.CommandTemplate, b.CommandTemplate) &&
		reflect.DeepEqual(a.ArgsSchema, b.ArgsSchema)
}
