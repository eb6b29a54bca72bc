package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"oblige-hq/warden/pkg/model"
)

// Config contains configuration for the violation ledger.
type Config struct {
	// Path is the append-only JSONL ledger file.
	Path string

	// StatusPath is the status overlay file, a small fully-rewritten
	// key -> value JSON document.
	StatusPath string
}

// DefaultConfig returns the default ledger configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:       "out/violations.jsonl",
		StatusPath: "out/violations_state.json",
	}
}

// Ledger is the durable, append-only, ordered store of every violation ever
// produced. Each record is one JSON line; prior entries are never rewritten
// or deleted. Appends are serialized so line boundaries stay atomic and
// arrival order is preserved — which is what lets the tailer treat the file
// size as a watermark.
type Ledger struct {
	config *Config
	logger *slog.Logger

	appendMu sync.Mutex
	statusMu sync.Mutex
}

// Entry is a ledger record with its overlay status merged in at read time.
type Entry struct {
	model.Violation
	Status model.Status `json:"status"`
}

// New creates a ledger over the configured files.
func New(config *Config) *Ledger {
	if config == nil {
		config = DefaultConfig()
	}
	return &Ledger{
		config: config,
		logger: slog.Default().With("component", "ledger"),
	}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.config.Path
}

// Append durably records one violation at the end of the ledger. The write
// is a single serialized line, mutex-guarded against concurrent appends.
func (l *Ledger) Append(v model.Violation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return model.NewLedgerError("append", err)
	}
	data = append(data, '\n')

	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	f, err := os.OpenFile(l.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return model.NewLedgerError("append", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return model.NewLedgerError("append", err)
	}

	l.logger.Info("violation recorded",
		"violation_id", v.ID,
		"rule_id", v.RuleID,
		"severity", v.Severity,
	)

	return nil
}

// Size returns the current ledger size in bytes, 0 when the file does not
// exist yet.
func (l *Ledger) Size() (int64, error) {
	info, err := os.Stat(l.config.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, model.NewLedgerError("stat", err)
	}
	return info.Size(), nil
}

// ReadFrom returns the raw bytes appended since offset, along with the new
// offset. Appends are line-atomic, so the returned range always ends on a
// record boundary.
func (l *Ledger) ReadFrom(offset int64) ([]byte, int64, error) {
	f, err := os.Open(l.config.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, model.NewLedgerError("read", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, model.NewLedgerError("read", err)
	}
	size := info.Size()
	if size <= offset {
		return nil, offset, nil
	}

	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, offset, model.NewLedgerError("read", err)
	}

	return buf, size, nil
}

// Snapshot returns the last limit entries in append order (most-recent-last)
// with their overlay status merged in. limit <= 0 returns everything.
// Corrupt lines are skipped rather than failing the snapshot.
func (l *Ledger) Snapshot(limit int) ([]Entry, error) {
	f, err := os.Open(l.config.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, model.NewLedgerError("snapshot", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var v model.Violation
		if err := json.Unmarshal(line, &v); err != nil {
			l.logger.Warn("skipping corrupt ledger line", "error", err)
			continue
		}
		entries = append(entries, Entry{Violation: v, Status: model.StatusOpen})
	}
	if err := scanner.Err(); err != nil {
		return nil, model.NewLedgerError("snapshot", err)
	}

	overlay, err := l.loadOverlay()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if s, ok := overlay[entries[i].ID]; ok {
			entries[i].Status = s
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	return entries, nil
}
