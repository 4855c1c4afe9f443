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

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aws/eks-anywhere-credential-provider/api"
	"github.com/aws/eks-anywhere-credential-provider/api/v1alpha1"
	"github.com/aws/eks-anywhere-credential-provider/pkg/artifacts"
	"github.com/aws/eks-anywhere-credential-provider/pkg/configurator"
	"github.com/aws/eks-anywhere-credential-provider/pkg/service"
)

func init() {
	rootCmd.AddCommand(installCommand)
	addInstallFlags(installCommand)
}

// addInstallFlags registers the node configuration flags. The check and
// watch commands drive the same rollout and take the same set.
func addInstallFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to an InstallerConfig manifest.")
	cmd.Flags().String("env-file", "", "Environment file loaded before reading configuration.")
	cmd.Flags().String("registry-host", "", "Registry host the provider authenticates for.")
	cmd.Flags().String("kubernetes-version", "", "Kubernetes version of the node, selects the kubelet config apiVersion.")
	cmd.Flags().String("flag-file", "", "Kubelet flag file to patch.")
	cmd.Flags().String("service", "", "Service to restart after patching.")
	cmd.Flags().String("staging-dir", "", "Directory holding staged provider binaries.")
	cmd.Flags().Bool("signal-restart", false, "Signal the kubelet process directly instead of going through systemd.")
}

func bindCommandFlags(cmd *cobra.Command, _ []string) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		log.Fatalf("failed to bind flags for %s: %v", cmd.Name(), err)
	}
}

// loadEnvAndManifest sources the installer configuration: an optional env
// file first, then the manifest, then flag and environment overrides, then
// defaults. The result is schema validated.
func loadEnvAndManifest() (*v1alpha1.InstallerConfig, error) {
	if envFile := viper.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading environment file %s: %w", envFile, err)
		}
	}

	config := &v1alpha1.InstallerConfig{}
	if path := viper.GetString("config"); path != "" {
		reader := api.NewFileReader(afero.NewOsFs(), path)
		if err := reader.Initialize(config); err != nil {
			return nil, err
		}
		if err := reader.Parse(config); err != nil {
			return nil, err
		}
	} else {
		config.Kind = v1alpha1.InstallerConfigKind
		config.APIVersion = v1alpha1.GroupVersion
	}

	applyOverrides(&config.Spec)
	config.Default()
	if err := v1alpha1.ValidateInstallerConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyOverrides(spec *v1alpha1.InstallerConfigSpec) {
	if v := viper.GetString("registry-host"); v != "" {
		spec.RegistryHost = v
	}
	if v := viper.GetString("kubernetes-version"); v != "" {
		spec.KubernetesVersion = v
	}
	if v := viper.GetString("flag-file"); v != "" {
		spec.FlagFile = v
	}
	if v := viper.GetString("service"); v != "" {
		spec.ServiceName = v
	}
	if v := viper.GetString("staging-dir"); v != "" {
		spec.StagingDir = v
	}
}

func newApplier(manifest *v1alpha1.InstallerConfig) *configurator.Applier {
	fs := afero.NewOsFs()
	installer := artifacts.NewStagingInstaller(fs, installerLog, manifest.Spec.StagingDir)
	svc := newServiceController(manifest.Spec.ServiceName)
	return configurator.NewApplier(installerLog, fs, svc, installer, configurator.FromManifest(manifest))
}

func newServiceController(unit string) service.Controller {
	if viper.GetBool("signal-restart") {
		return service.NewProcessController(installerLog, unit)
	}
	return service.NewSystemdController(installerLog)
}

func apply(ctx context.Context, manifest *v1alpha1.InstallerConfig) (configurator.Result, error) {
	result, err := newApplier(manifest).Apply(ctx)
	if result.Report != nil && !result.Report.Passed() {
		for _, c := range result.Report.Checks {
			installerLog.Info("validation check", "name", c.Name, "passed", c.Passed, "observed", c.Observed, "expected", c.Expected)
		}
	}
	return result, err
}

func install(ctx context.Context) (configurator.Result, error) {
	manifest, err := loadEnvAndManifest()
	if err != nil {
		return configurator.Result{}, err
	}
	return apply(ctx, manifest)
}

func runInstall(cmd *cobra.Command, _ []string) {
	result, err := install(cmd.Context())
	if err != nil {
		installerLog.Error(err, "install failed", "state", string(result.State))
		os.Exit(1)
	}
	installerLog.Info("install finished", "state", string(result.State))
}

var installCommand = &cobra.Command{
	Use:    "install",
	Short:  "Configure this node's kubelet credential provider",
	Long:   "Patch the kubelet flag file, install the provider binary and config, and restart the service",
	PreRun: bindCommandFlags,
	Run:    runInstall,
}
