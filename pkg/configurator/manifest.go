package configurator

import (
	"github.com/aws/eks-anywhere-credential-provider/api/v1alpha1"
	"github.com/aws/eks-anywhere-credential-provider/pkg/descriptor"
	"github.com/aws/eks-anywhere-credential-provider/pkg/planner"
	"github.com/aws/eks-anywhere-credential-provider/pkg/utils"
)

const kubeletCredentialProvidersGate = "KubeletCredentialProviders"

// FromManifest translates an installer manifest into the rollout Config.
// The manifest is expected to be defaulted and validated already.
func FromManifest(config *v1alpha1.InstallerConfig) Config {
	spec := config.Spec

	gates := make([]planner.Gate, 0, len(spec.FeatureGates))
	for _, g := range spec.FeatureGates {
		gates = append(gates, planner.Gate{Name: g.Name, Enabled: g.Enabled})
	}
	if len(gates) == 0 && requiresProviderGate(spec.KubernetesVersion) {
		gates = append(gates, planner.Gate{Name: kubeletCredentialProvidersGate, Enabled: true})
	}

	return Config{
		FlagFile:     spec.FlagFile,
		FlagVar:      spec.FlagVar,
		Unit:         spec.ServiceName,
		SentinelPath: spec.SentinelPath,
		Desired: planner.DesiredState{
			BinDir:               spec.BinDir,
			ConfigPath:           spec.ConfigPath,
			RequiredFeatureGates: gates,
			ObsoleteBinDir:       spec.ObsoleteBinDir,
			ObsoleteConfigPath:   spec.ObsoleteConfigPath,
		},
		Descriptor: descriptor.Spec{
			BinaryName:        spec.ProviderBinary,
			MatchImages:       descriptor.MatchPatterns(spec.RegistryHost, spec.MirrorEndpoint, spec.ExtraMatchImages...),
			CacheDuration:     spec.CacheDuration,
			KubernetesVersion: spec.KubernetesVersion,
			Args:              spec.ProviderArgs,
			Env: utils.Map(spec.ProviderEnv, func(e v1alpha1.ProviderEnv) descriptor.EnvVar {
				return descriptor.EnvVar{Name: e.Name, Value: e.Value}
			}),
		},
	}
}

// requiresProviderGate reports whether kubelet at this version still hides
// credential providers behind the KubeletCredentialProviders feature gate.
// The gate went GA in 1.26 and the flag disappeared in 1.28.
func requiresProviderGate(kubernetesVersion string) bool {
	return descriptor.APIVersion(kubernetesVersion) != "v1"
}
