// Package descriptor renders the CredentialProviderConfig file kubelet
// reads to discover credential provider binaries. The file's apiVersion
// tracks the node's Kubernetes version, so the same installer works across
// the alpha, beta and GA shapes of the kubelet API.
package descriptor

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"golang.org/x/mod/semver"
	kubeletconfigv1 "k8s.io/kubelet/config/v1"
	kubeletconfigv1alpha1 "k8s.io/kubelet/config/v1alpha1"
	kubeletconfigv1beta1 "k8s.io/kubelet/config/v1beta1"
	"sigs.k8s.io/yaml"

	"github.com/aws/eks-anywhere-credential-provider/pkg/templater"
	"github.com/aws/eks-anywhere-credential-provider/pkg/utils"
)

//go:embed templates/credential-provider-config.yaml
var configTemplate string

// DefaultCacheDuration is used when the spec does not set one.
const DefaultCacheDuration = "30m"

// EnvVar is one environment variable passed to the provider binary.
type EnvVar struct {
	Name  string
	Value string
}

// Spec carries everything needed to render the config file.
type Spec struct {
	// BinaryName is the provider executable kubelet invokes, looked up
	// relative to the bin dir the flag file points at.
	BinaryName string

	// MatchImages are the image reference patterns the provider serves.
	MatchImages []string

	// CacheDuration is how long kubelet caches returned credentials.
	CacheDuration string

	// KubernetesVersion selects the config apiVersion. Empty picks the
	// current GA version.
	KubernetesVersion string

	Args []string
	Env  []EnvVar
}

// APIVersion maps a Kubernetes version to the CredentialProviderConfig
// apiVersion kubelet expects at that version.
func APIVersion(kubernetesVersion string) string {
	if kubernetesVersion == "" {
		return "v1"
	}
	v := kubernetesVersion
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	v = semver.MajorMinor(v)
	apiVersion := "v1"
	if semver.Compare(v, "v1.25") <= 0 {
		apiVersion = "v1beta1"
	}
	if semver.Compare(v, "v1.23") <= 0 {
		apiVersion = "v1alpha1"
	}
	return apiVersion
}

// MatchPatterns builds the matchImages list from the registry host, an
// optional mirror endpoint and any extra patterns, dropping duplicates
// while preserving order.
func MatchPatterns(registryHost, mirrorEndpoint string, extra ...string) []string {
	var patterns []string
	seen := map[string]bool{}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	add(registryHost)
	add(hostOf(mirrorEndpoint))
	for _, p := range extra {
		add(p)
	}
	return patterns
}

// hostOf reduces an endpoint like https://mirror.example.com:5000/v2 to
// the host[:port] form image references use.
func hostOf(endpoint string) string {
	host := endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	return host
}

type templateData struct {
	APIVersion    string
	BinaryName    string
	MatchImages   []string
	CacheDuration string
	Args          []string
	Env           []EnvVar
}

// Render produces the config file contents for spec.
func Render(spec Spec) ([]byte, error) {
	if spec.BinaryName == "" {
		return nil, fmt.Errorf("rendering credential provider config: binary name is required")
	}
	if len(spec.MatchImages) == 0 {
		return nil, fmt.Errorf("rendering credential provider config: at least one match pattern is required")
	}
	cache := spec.CacheDuration
	if cache == "" {
		cache = DefaultCacheDuration
	}
	data := templateData{
		APIVersion:    APIVersion(spec.KubernetesVersion),
		BinaryName:    spec.BinaryName,
		MatchImages:   spec.MatchImages,
		CacheDuration: cache,
		Args:          spec.Args,
		Env:           spec.Env,
	}
	out, err := templater.Execute(configTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("rendering credential provider config: %w", err)
	}
	if err := verify(out, data.APIVersion); err != nil {
		return nil, fmt.Errorf("rendered credential provider config is invalid: %w", err)
	}
	return out, nil
}

// verify parses the rendered document back through the typed kubelet
// config API for the selected version, catching template drift before
// anything reaches the node.
func verify(data []byte, apiVersion string) error {
	switch apiVersion {
	case "v1alpha1":
		cfg := kubeletconfigv1alpha1.CredentialProviderConfig{}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return err
		}
		if len(cfg.Providers) == 0 {
			return fmt.Errorf("no providers rendered")
		}
	case "v1beta1":
		cfg := kubeletconfigv1beta1.CredentialProviderConfig{}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return err
		}
		if len(cfg.Providers) == 0 {
			return fmt.Errorf("no providers rendered")
		}
	default:
		cfg := kubeletconfigv1.CredentialProviderConfig{}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return err
		}
		if len(cfg.Providers) == 0 {
			return fmt.Errorf("no providers rendered")
		}
	}
	return nil
}

// Writer renders and installs config files.
type Writer struct {
	fs  afero.Fs
	log logr.Logger
}

func NewWriter(fs afero.Fs, log logr.Logger) *Writer {
	return &Writer{fs: fs, log: log.WithName("descriptor")}
}

// Write renders spec and writes it to path, creating parent directories
// as needed. The file is written atomically with mode 0600 to match the
// node files kubelet already consumes.
func (w *Writer) Write(spec Spec, path string) error {
	out, err := Render(spec)
	if err != nil {
		return err
	}
	if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := utils.WriteFileAtomic(w.fs, path, out, 0o600); err != nil {
		return fmt.Errorf("writing credential provider config: %w", err)
	}
	w.log.Info("wrote credential provider config", "path", path, "apiVersion", APIVersion(spec.KubernetesVersion))
	return nil
}
