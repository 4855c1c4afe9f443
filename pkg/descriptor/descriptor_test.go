package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/eks-anywhere-credential-provider/pkg/testutil"
)

func TestAPIVersion(t *testing.T) {
	tests := []struct {
		name       string
		k8sVersion string
		want       string
	}{
		{name: "1.22 uses alpha", k8sVersion: "v1.22", want: "v1alpha1"},
		{name: "1.23 uses alpha", k8sVersion: "v1.23", want: "v1alpha1"},
		{name: "1.24 uses beta", k8sVersion: "v1.24", want: "v1beta1"},
		{name: "1.25 uses beta", k8sVersion: "v1.25", want: "v1beta1"},
		{name: "1.26 is GA", k8sVersion: "v1.26", want: "v1"},
		{name: "1.29 is GA", k8sVersion: "v1.29", want: "v1"},
		{name: "patch version tolerated", k8sVersion: "v1.24.7", want: "v1beta1"},
		{name: "missing v prefix tolerated", k8sVersion: "1.25", want: "v1beta1"},
		{name: "empty assumes current", k8sVersion: "", want: "v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, APIVersion(tt.k8sVersion))
		})
	}
}

func TestMatchPatterns(t *testing.T) {
	tests := []struct {
		name     string
		registry string
		mirror   string
		extra    []string
		want     []string
	}{
		{
			name:     "registry only",
			registry: "*.dkr.ecr.*.amazonaws.com",
			want:     []string{"*.dkr.ecr.*.amazonaws.com"},
		},
		{
			name:     "mirror endpoint reduced to host",
			registry: "public.ecr.aws",
			mirror:   "https://mirror.example.internal:8443/v2/eks-anywhere",
			want:     []string{"public.ecr.aws", "mirror.example.internal:8443"},
		},
		{
			name:     "extras appended without duplicates",
			registry: "public.ecr.aws",
			extra:    []string{"783794618700.dkr.ecr.us-west-2.amazonaws.com", "public.ecr.aws"},
			want:     []string{"public.ecr.aws", "783794618700.dkr.ecr.us-west-2.amazonaws.com"},
		},
		{
			name:   "empty registry dropped",
			mirror: "mirror.example.internal",
			want:   []string{"mirror.example.internal"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPatterns(tt.registry, tt.mirror, tt.extra...))
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{
			name: "GA with args and env",
			spec: Spec{
				BinaryName:        "ecr-credential-provider",
				MatchImages:       []string{"*.dkr.ecr.*.amazonaws.com", "registry.example.internal:8443"},
				CacheDuration:     "30m",
				KubernetesVersion: "v1.28",
				Args:              []string{"get-credentials"},
				Env:               []EnvVar{{Name: "AWS_PROFILE", Value: "eksa-packages"}},
			},
			want: "testdata/expected-config-v1.yaml",
		},
		{
			name: "beta with custom cache duration",
			spec: Spec{
				BinaryName:        "ecr-credential-provider",
				MatchImages:       []string{"783794618700.dkr.ecr.us-west-2.amazonaws.com"},
				CacheDuration:     "12h",
				KubernetesVersion: "1.24",
			},
			want: "testdata/expected-config-v1beta1.yaml",
		},
		{
			name: "alpha without args",
			spec: Spec{
				BinaryName:        "ecr-credential-provider",
				MatchImages:       []string{"public.ecr.aws"},
				KubernetesVersion: "v1.22",
			},
			want: "testdata/expected-config-v1alpha1.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.spec)
			require.NoError(t, err)

			want, err := os.ReadFile(tt.want)
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got))
		})
	}
}

func TestRenderRejectsIncompleteSpec(t *testing.T) {
	_, err := Render(Spec{MatchImages: []string{"public.ecr.aws"}})
	assert.ErrorContains(t, err, "binary name is required")

	_, err = Render(Spec{BinaryName: "ecr-credential-provider"})
	assert.ErrorContains(t, err, "match pattern is required")
}

func TestRenderRejectsUnparseableOutput(t *testing.T) {
	// A binary name with a newline corrupts the rendered document; the
	// typed read-back must catch it before anything reaches disk.
	_, err := Render(Spec{
		BinaryName:  "ecr-credential-provider\nserviceAccountToken: {}",
		MatchImages: []string{"public.ecr.aws"},
	})
	assert.ErrorContains(t, err, "rendered credential provider config is invalid")
}

func TestWriterWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, logr.Discard())
	path := "/etc/eks/image-credential-provider/config.yaml"

	spec := Spec{
		BinaryName:        "ecr-credential-provider",
		MatchImages:       []string{"public.ecr.aws"},
		KubernetesVersion: "v1.22",
	}
	require.NoError(t, w.Write(spec, path))

	testutil.AssertFilesEquals(t, fs, path, "testdata/expected-config-v1alpha1.yaml")

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Parent directories come into being as part of the write.
	dirInfo, err := fs.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir())
}
