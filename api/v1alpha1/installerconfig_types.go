// Copyright Amazon.com Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// InstallerConfigKind is the expected kind of an installer manifest.
	InstallerConfigKind = "InstallerConfig"

	// GroupVersion identifies the manifest schema.
	GroupVersion = "credentialprovider.eks.amazonaws.com/v1alpha1"
)

// Defaults applied by (*InstallerConfig).Default.
const (
	DefaultProviderBinary = "ecr-credential-provider"
	DefaultRegistryHost   = "*.dkr.ecr.*.amazonaws.com"
	DefaultFlagFile       = "/etc/eks/kubelet-flags.env"
	DefaultBinDir         = "/etc/eks/image-credential-provider"
	DefaultConfigPath     = "/etc/eks/image-credential-provider/config.yaml"
	DefaultServiceName    = "kubelet"
)

// FeatureGate is one kubelet feature gate the installer must enforce.
type FeatureGate struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ProviderEnv is one environment variable passed to the provider binary.
type ProviderEnv struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// InstallerConfigSpec describes what the node should end up running.
type InstallerConfigSpec struct {
	// RegistryHost is the image registry the provider authenticates for,
	// in kubelet matchImages pattern form.
	RegistryHost string `json:"registryHost"`

	// MirrorEndpoint optionally names a local registry mirror whose host
	// is added to the match patterns.
	MirrorEndpoint string `json:"mirrorEndpoint,omitempty"`

	// ExtraMatchImages are additional matchImages patterns.
	ExtraMatchImages []string `json:"extraMatchImages,omitempty"`

	// KubernetesVersion selects the CredentialProviderConfig apiVersion.
	KubernetesVersion string `json:"kubernetesVersion,omitempty"`

	// CacheDuration is how long kubelet caches credentials.
	CacheDuration string `json:"cacheDuration,omitempty"`

	ProviderBinary string        `json:"providerBinary,omitempty"`
	ProviderArgs   []string      `json:"providerArgs,omitempty"`
	ProviderEnv    []ProviderEnv `json:"providerEnv,omitempty"`

	// FlagFile is the env style file carrying kubelet's extra flags, and
	// FlagVar the variable within it.
	FlagFile string `json:"flagFile,omitempty"`
	FlagVar  string `json:"flagVar,omitempty"`

	BinDir     string `json:"binDir,omitempty"`
	ConfigPath string `json:"configPath,omitempty"`

	// ServiceName is the unit restarted after reconfiguration.
	ServiceName string `json:"serviceName,omitempty"`

	// StagingDir holds provider binaries before installation. Empty
	// means binaries are delivered out of band.
	StagingDir string `json:"stagingDir,omitempty"`

	// SentinelPath marks completed rollouts.
	SentinelPath string `json:"sentinelPath,omitempty"`

	FeatureGates []FeatureGate `json:"featureGates,omitempty"`

	// ObsoleteBinDir and ObsoleteConfigPath are values of a previous
	// installation that must be gone once this one is applied.
	ObsoleteBinDir     string `json:"obsoleteBinDir,omitempty"`
	ObsoleteConfigPath string `json:"obsoleteConfigPath,omitempty"`
}

// InstallerConfig is the on-disk manifest driving the installer.
type InstallerConfig struct {
	metav1.TypeMeta `json:",inline"`

	Spec InstallerConfigSpec `json:"spec,omitempty"`
}

func (config *InstallerConfig) MetaKind() string {
	return config.TypeMeta.Kind
}

func (config *InstallerConfig) ExpectedKind() string {
	return InstallerConfigKind
}

// Default fills unset fields with the values EKS Anywhere nodes use.
func (config *InstallerConfig) Default() {
	spec := &config.Spec
	if spec.RegistryHost == "" {
		spec.RegistryHost = DefaultRegistryHost
	}
	if spec.ProviderBinary == "" {
		spec.ProviderBinary = DefaultProviderBinary
	}
	if spec.FlagFile == "" {
		spec.FlagFile = DefaultFlagFile
	}
	if spec.BinDir == "" {
		spec.BinDir = DefaultBinDir
	}
	if spec.ConfigPath == "" {
		spec.ConfigPath = DefaultConfigPath
	}
	if spec.ServiceName == "" {
		spec.ServiceName = DefaultServiceName
	}
}
