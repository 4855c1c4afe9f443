package artifacts

import (
	"context"
	"os"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallFromStaging(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/staging/ecr-credential-provider", []byte("binary contents"), 0o644))

	i := NewStagingInstaller(fs, logr.Discard(), "/staging")
	path, err := i.Install(context.Background(), "ecr-credential-provider", "/etc/eks/image-credential-provider")
	require.NoError(t, err)
	assert.Equal(t, "/etc/eks/image-credential-provider/ecr-credential-provider", path)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "binary contents", string(got))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestInstallOverwritesPrevious(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/staging/ecr-credential-provider", []byte("new"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bin/ecr-credential-provider", []byte("old and longer"), 0o700))

	i := NewStagingInstaller(fs, logr.Discard(), "/staging")
	path, err := i.Install(context.Background(), "ecr-credential-provider", "/bin")
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestInstallMissingStagedBinary(t *testing.T) {
	i := NewStagingInstaller(afero.NewMemMapFs(), logr.Discard(), "/staging")
	_, err := i.Install(context.Background(), "ecr-credential-provider", "/bin")
	assert.ErrorContains(t, err, "not staged")
}

func TestInstallVerifyOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	i := NewStagingInstaller(fs, logr.Discard(), "")

	_, err := i.Install(context.Background(), "ecr-credential-provider", "/bin")
	assert.ErrorContains(t, err, "no staging directory configured")

	require.NoError(t, afero.WriteFile(fs, "/bin/ecr-credential-provider", []byte("preinstalled"), 0o700))
	path, err := i.Install(context.Background(), "ecr-credential-provider", "/bin")
	require.NoError(t, err)
	assert.Equal(t, "/bin/ecr-credential-provider", path)
}
