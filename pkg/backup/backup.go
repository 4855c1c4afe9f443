// Package backup preserves the pre-mutation copy of a configuration file
// so a failed rollout can be rolled back to known-good contents.
package backup

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/aws/eks-anywhere-credential-provider/pkg/utils"
)

// Suffix is appended to the live path to form the backup path.
const Suffix = ".bak"

// Record identifies one backup and whether this run created it.
type Record struct {
	LivePath   string
	BackupPath string

	// Created is false when the backup already existed. An existing
	// backup is never overwritten: it holds the oldest known-good
	// contents and a rerun after a partial failure must not clobber it.
	Created bool
}

// Manager creates and restores backups next to the files they protect.
type Manager struct {
	fs  afero.Fs
	log logr.Logger
}

func NewManager(fs afero.Fs, log logr.Logger) *Manager {
	return &Manager{fs: fs, log: log.WithName("backup")}
}

// EnsureBackup copies path to path.bak unless the backup already exists.
// The copy keeps the live file's mode. Backups are never deleted by this
// tool; cleanup is the operator's call.
func (m *Manager) EnsureBackup(path string) (Record, error) {
	rec := Record{LivePath: path, BackupPath: path + Suffix}

	exists, err := afero.Exists(m.fs, rec.BackupPath)
	if err != nil {
		return rec, fmt.Errorf("checking for backup %s: %w", rec.BackupPath, err)
	}
	if exists {
		m.log.V(1).Info("backup already exists, keeping it", "path", rec.BackupPath)
		return rec, nil
	}

	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return rec, fmt.Errorf("reading %s for backup: %w", path, err)
	}
	mode := utils.FileMode(m.fs, path, 0o644)
	if err := utils.WriteFileAtomic(m.fs, rec.BackupPath, data, mode); err != nil {
		return rec, fmt.Errorf("writing backup %s: %w", rec.BackupPath, err)
	}
	rec.Created = true
	m.log.Info("created backup", "path", rec.BackupPath)
	return rec, nil
}

// Restore copies the backup contents back over the live path. The backup
// file itself is left in place.
func (m *Manager) Restore(rec Record) error {
	data, err := afero.ReadFile(m.fs, rec.BackupPath)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", rec.BackupPath, err)
	}
	mode := utils.FileMode(m.fs, rec.LivePath, 0o644)
	if err := utils.WriteFileAtomic(m.fs, rec.LivePath, data, mode); err != nil {
		return fmt.Errorf("restoring %s from %s: %w", rec.LivePath, rec.BackupPath, err)
	}
	m.log.Info("restored file from backup", "path", rec.LivePath, "backup", rec.BackupPath)
	return nil
}
