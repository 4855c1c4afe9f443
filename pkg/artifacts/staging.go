package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
)

// StagingInstaller copies provider binaries from a staging directory into
// the bin dir kubelet is pointed at. With no staging directory configured
// it only verifies a binary is already in place, for hosts where delivery
// happens out of band.
type StagingInstaller struct {
	fs         afero.Fs
	log        logr.Logger
	stagingDir string
}

var _ Installer = (*StagingInstaller)(nil)

// NewStagingInstaller creates and initializes a StagingInstaller.
func NewStagingInstaller(fs afero.Fs, log logr.Logger, stagingDir string) *StagingInstaller {
	return &StagingInstaller{
		fs:         fs,
		log:        log.WithName("artifacts"),
		stagingDir: stagingDir,
	}
}

func (i *StagingInstaller) Install(ctx context.Context, binary, binDir string) (string, error) {
	dst := filepath.Join(binDir, binary)

	if i.stagingDir == "" {
		exists, err := afero.Exists(i.fs, dst)
		if err != nil {
			return "", fmt.Errorf("checking for provider binary %s: %w", dst, err)
		}
		if !exists {
			return "", fmt.Errorf("provider binary %s not found and no staging directory configured", dst)
		}
		return dst, nil
	}

	src := filepath.Join(i.stagingDir, binary)
	exists, err := afero.Exists(i.fs, src)
	if err != nil {
		return "", fmt.Errorf("checking staged binary %s: %w", src, err)
	}
	if !exists {
		return "", fmt.Errorf("provider binary %s not staged in %s", binary, i.stagingDir)
	}

	if err := i.fs.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("creating bin dir %s: %w", binDir, err)
	}
	if err := i.copyWithPermissions(src, dst, 0o700); err != nil {
		return "", fmt.Errorf("installing %s into %s: %w", binary, binDir, err)
	}
	i.log.Info("installed provider binary", "binary", binary, "path", dst)
	return dst, nil
}

func (i *StagingInstaller) copyWithPermissions(src, dst string, mode os.FileMode) (err error) {
	source, err := i.fs.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := i.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := destination.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(destination, source); err != nil {
		return err
	}
	return i.fs.Chmod(dst, mode)
}
