package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/aws/eks-anywhere-credential-provider/api/v1alpha1"
)

// GivenFs builds an in-memory filesystem pre-populated with files, for
// tests that drive the installer against a fake node root.
func GivenFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return fs
}

// GivenInstallerConfig loads an installer manifest from a testdata file.
func GivenInstallerConfig(filename string) (*v1alpha1.InstallerConfig, error) {
	content, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}
	config := &v1alpha1.InstallerConfig{}
	err = yaml.UnmarshalStrict(content, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}
