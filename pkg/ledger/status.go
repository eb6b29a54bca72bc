package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"oblige-hq/warden/pkg/model"
)

// SetStatus records an explicit status change for a violation id. The
// overlay is read, modified and fully rewritten under a lock so concurrent
// status changes never lose updates. The ledger record itself is untouched.
func (l *Ledger) SetStatus(violationID string, status model.Status) error {
	if !model.ValidStatus(status) {
		return model.NewLedgerError("status",
			fmt.Errorf("status must be OPEN, ACK or RESOLVED, got %q", status))
	}

	l.statusMu.Lock()
	defer l.statusMu.Unlock()

	overlay, err := l.loadOverlayLocked()
	if err != nil {
		return err
	}
	overlay[violationID] = status

	data, err := json.Marshal(overlay)
	if err != nil {
		return model.NewLedgerError("status", err)
	}
	if err := writeFileAtomic(l.config.StatusPath, data); err != nil {
		return model.NewLedgerError("status", err)
	}

	l.logger.Info("violation status updated",
		"violation_id", violationID,
		"status", status,
	)

	return nil
}

// Status returns the overlay status for a violation id; ids with no overlay
// entry are OPEN.
func (l *Ledger) Status(violationID string) (model.Status, error) {
	overlay, err := l.loadOverlay()
	if err != nil {
		return "", err
	}
	if s, ok := overlay[violationID]; ok {
		return s, nil
	}
	return model.StatusOpen, nil
}

func (l *Ledger) loadOverlay() (map[string]model.Status, error) {
	l.statusMu.Lock()
	defer l.statusMu.Unlock()
	return l.loadOverlayLocked()
}

func (l *Ledger) loadOverlayLocked() (map[string]model.Status, error) {
	data, err := os.ReadFile(l.config.StatusPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]model.Status), nil
		}
		return nil, model.NewLedgerError("status", err)
	}

	overlay := make(map[string]model.Status)
	if err := json.Unmarshal(data, &overlay); err != nil {
		// A corrupt overlay must not make violation history unreadable;
		// statuses fall back to OPEN.
		l.logger.Warn("corrupt status overlay, starting empty", "error", err)
		return make(map[string]model.Status), nil
	}
	return overlay, nil
}

// writeFileAtomic writes data via a sibling temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

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
