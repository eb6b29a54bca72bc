package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"oblige-hq/warden/pkg/model"
)

const (
	// BundleFile is the persisted rule bundle, one whole generation per
	// compilation run.
	BundleFile = "policy.yaml"

	// IndexFile is the derived lookup index, rebuilt on every write.
	IndexFile = "rules_index.json"
)

// Bundle is the persisted rule set: one generation fully replaces the
// previous on each compilation run.
type Bundle struct {
	PolicyID    string             `json:"policy_id" yaml:"policy_id"`
	GeneratedAt string             `json:"generated_at" yaml:"generated_at"`
	Rules       []model.PolicyRule `json:"rules" yaml:"rules"`
}

// Config contains configuration for the rule store.
type Config struct {
	// Dir is the directory holding the bundle and index artifacts.
	Dir string

	// Cache enables the in-process read cache. Reads then serve from the
	// cached bundle, invalidated on Write and on bundle-file changes seen
	// by the watcher. Default: false (fresh load per read).
	Cache bool
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:   "out",
		Cache: false,
	}
}

// Store persists compiled rule bundles and serves rule lookups for the
// validation engine. Writes replace the whole generation atomically;
// concurrent readers see either the old or the new bundle, never a partial
// one.
type Store struct {
	config *Config
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Bundle // nil when cache disabled or invalidated
}

// New creates a rule store over the configured directory, creating it if
// needed.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, model.NewStoreError("bundle", "mkdir", err)
	}

	return &Store{
		config: config,
		logger: slog.Default().With("component", "store"),
	}, nil
}

// BundlePath returns the absolute-ish path of the bundle artifact.
func (s *Store) BundlePath() string {
	return filepath.Join(s.config.Dir, BundleFile)
}

// IndexPath returns the path of the index artifact.
func (s *Store) IndexPath() string {
	return filepath.Join(s.config.Dir, IndexFile)
}

// Write persists rules as one atomic bundle, then rebuilds and persists the
// index. Both artifacts are written to a temp file and renamed into place so
// a racing reader never observes a partial generation. Last writer wins.
func (s *Store) Write(rules []model.PolicyRule) (*Bundle, error) {
	bundle := &Bundle{
		PolicyID:    fmt.Sprintf("policy_%d", time.Now().Unix()),
		GeneratedAt: model.Timestamp(time.Now()),
		Rules:       rules,
	}

	data, err := yaml.Marshal(bundle)
	if err != nil {
		return nil, model.NewStoreError("bundle", "marshal", err)
	}
	if err := writeAtomic(s.BundlePath(), data); err != nil {
		return nil, model.NewStoreError("bundle", "write", err)
	}

	index := BuildIndex(rules)
	indexData, err := json.Marshal(index)
	if err != nil {
		return nil, model.NewStoreError("index", "marshal", err)
	}
	if err := writeAtomic(s.IndexPath(), indexData); err != nil {
		return nil, model.NewStoreError("index", "write", err)
	}

	s.mu.Lock()
	if s.config.Cache {
		s.cached = bundle
	}
	s.mu.Unlock()

	s.logger.Info("rule bundle written",
		"policy_id", bundle.PolicyID,
		"rule_count", len(rules),
		"path", s.BundlePath(),
	)

	return bundle, nil
}

// Load reads the current bundle. A store that has never been written
// returns an empty rule set, not an error.
func (s *Store) Load() (*Bundle, error) {
	if s.config.Cache {
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
	}

	data, err := os.ReadFile(s.BundlePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Bundle{}, nil
		}
		return nil, model.NewStoreError("bundle", "read", err)
	}

	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, model.NewStoreError("bundle", "unmarshal", err)
	}

	if s.config.Cache {
		s.mu.Lock()
		s.cached = &bundle
		s.mu.Unlock()
	}

	return &bundle, nil
}

// RulesFor returns the rules triggered by eventType whose selector subject
// exactly equals subject, in compilation order. The bundle is loaded fresh
// on every call unless the cache is enabled.
func (s *Store) RulesFor(eventType, subject string) ([]model.PolicyRule, error) {
	bundle, err := s.Load()
	if err != nil {
		return nil, err
	}

	var out []model.PolicyRule
	for _, r := range bundle.Rules {
		if r.SelectorSubject() != subject {
			continue
		}
		for _, ev := range r.OnEvents {
			if ev == eventType {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// Invalidate drops the cached bundle so the next read loads from disk. Used
// by the bundle watcher when an out-of-process compiler replaces the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// writeAtomic writes data to a sibling temp file and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
