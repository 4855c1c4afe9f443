package backup

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flagPath = "/etc/eks/kubelet-flags.env"

func newManager(t *testing.T) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, flagPath, []byte("original\n"), 0o644))
	return NewManager(fs, logr.Discard()), fs
}

func TestEnsureBackupCreatesOnce(t *testing.T) {
	m, fs := newManager(t)

	rec, err := m.EnsureBackup(flagPath)
	require.NoError(t, err)
	assert.True(t, rec.Created)
	assert.Equal(t, flagPath+".bak", rec.BackupPath)

	got, err := afero.ReadFile(fs, rec.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(got))

	// A second run must keep the first backup even though the live file
	// has moved on.
	require.NoError(t, afero.WriteFile(fs, flagPath, []byte("mutated\n"), 0o644))
	rec, err = m.EnsureBackup(flagPath)
	require.NoError(t, err)
	assert.False(t, rec.Created)

	got, err = afero.ReadFile(fs, rec.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(got))
}

func TestEnsureBackupMissingSource(t *testing.T) {
	m := NewManager(afero.NewMemMapFs(), logr.Discard())
	_, err := m.EnsureBackup(flagPath)
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	m, fs := newManager(t)

	rec, err := m.EnsureBackup(flagPath)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, flagPath, []byte("bad contents\n"), 0o644))
	require.NoError(t, m.Restore(rec))

	got, err := afero.ReadFile(fs, flagPath)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(got))

	// Restore keeps the backup around for another attempt.
	exists, err := afero.Exists(fs, rec.BackupPath)
	require.NoError(t, err)
	assert.True(t, exists)
}
