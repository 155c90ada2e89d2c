// Package profile keeps one engine per named profile, each over its own
// SQLite database file.
package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
)

// DefaultName is used when a profile name sanitizes to nothing.
const DefaultName = "default"

const (
	maxNameLength = 50
	dbExtension   = ".db"
)

var invalidNameRe = regexp.MustCompile(`[^a-z0-9_-]`)

// SanitizeName lowercases name, drops every character outside [a-z0-9_-]
// and truncates it to 50 characters. The result may be empty.
func SanitizeName(name string) string {
	s := invalidNameRe.ReplaceAllString(strings.ToLower(name), "")
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}

// Manager opens and caches per-profile engines.
type Manager struct {
	engines map[string]*openEngine
	dir     string
	opts    []engine.Option
	mu      sync.Mutex
}

// openEngine counts the callers holding an engine through Acquire.
type openEngine struct {
	*engine.Engine
	leases int
}

// NewManager creates a manager storing profile databases under dir. The
// options are applied to every engine it opens.
func NewManager(dir string, opts ...engine.Option) *Manager {
	return &Manager{
		dir:     dir,
		opts:    opts,
		engines: make(map[string]*openEngine),
	}
}

// Dir returns the directory holding profile databases.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the database file of an already sanitized profile name.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name+dbExtension)
}

// Open returns the engine for name, creating and migrating its database on
// first use. Names that sanitize to nothing open the default profile.
// Callers that may run alongside Delete should use Acquire instead.
func (m *Manager) Open(ctx context.Context, name string) (*engine.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oe, err := m.open(ctx, resolveName(name))
	if err != nil {
		return nil, err
	}
	return oe.Engine, nil
}

// Acquire is Open for concurrent callers. The profile cannot be deleted
// until release is called; release may be called more than once.
func (m *Manager) Acquire(ctx context.Context, name string) (*engine.Engine, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oe, err := m.open(ctx, resolveName(name))
	if err != nil {
		return nil, nil, err
	}
	oe.leases++

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			oe.leases--
			m.mu.Unlock()
		})
	}
	return oe.Engine, release, nil
}

func resolveName(name string) string {
	if safe := SanitizeName(name); safe != "" {
		return safe
	}
	return DefaultName
}

func (m *Manager) open(ctx context.Context, name string) (*openEngine, error) {
	if oe, ok := m.engines[name]; ok {
		return oe, nil
	}

	store, err := storage.NewSQLiteStorage(m.Path(name))
	if err != nil {
		return nil, common.Internal(fmt.Sprintf("failed to open profile %q", name), err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.Internal(fmt.Sprintf("failed to migrate profile %q", name), err)
	}

	oe := &openEngine{Engine: engine.New(store, name, m.opts...)}
	m.engines[name] = oe
	common.LogDebug("Opened profile", common.Fields{"profile": name, "path": m.Path(name)})
	return oe, nil
}

// Create opens a new profile and seeds its default categories. Unlike Open
// it rejects names that sanitize to nothing. It returns the sanitized name.
func (m *Manager) Create(ctx context.Context, name string) (string, error) {
	safe := SanitizeName(name)
	if safe == "" {
		return "", common.Validationf("invalid profile name %q: use only a-z, 0-9, _ or -", name)
	}

	e, release, err := m.Acquire(ctx, safe)
	if err != nil {
		return "", err
	}
	defer release()
	if _, err := e.SeedDefaults(ctx); err != nil {
		return "", err
	}
	return safe, nil
}

// List returns the names of every profile on disk, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, common.Internal("failed to list profiles", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != dbExtension {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), dbExtension))
	}
	sort.Strings(names)
	return names, nil
}

// Delete closes a profile and removes its database. The last remaining
// profile and a profile held through Acquire cannot be deleted.
func (m *Manager) Delete(name string) error {
	safe := SanitizeName(name)
	if safe == "" {
		return common.Validationf("invalid profile name %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.List()
	if err != nil {
		return err
	}
	found := false
	for _, n := range names {
		found = found || n == safe
	}
	if !found {
		return common.NotFoundf("profile %q not found", safe)
	}
	if len(names) <= 1 {
		return common.Conflictf("cannot delete the only profile")
	}

	if oe, ok := m.engines[safe]; ok {
		if oe.leases > 0 {
			return common.Conflictf("profile %q is in use", safe)
		}
		if err := oe.Close(); err != nil {
			common.LogWarn("Failed to close profile before delete", common.Fields{"profile": safe, "error": err.Error()})
		}
		delete(m.engines, safe)
	}

	path := m.Path(safe)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return common.Internal(fmt.Sprintf("failed to delete profile %q", safe), err)
		}
	}
	common.LogInfo("Deleted profile", common.Fields{"profile": safe})
	return nil
}

// Close closes every open engine.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, oe := range m.engines {
		if err := oe.Close(); err != nil {
			errs = append(errs, fmt.Errorf("profile %s: %w", name, err))
		}
		delete(m.engines, name)
	}
	return errors.Join(errs...)
}
