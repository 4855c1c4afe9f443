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
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aws/eks-anywhere-credential-provider/pkg/sentinel"
)

func init() {
	rootCmd.AddCommand(resetCommand)
	resetCommand.Flags().String("config", "", "Path to an InstallerConfig manifest.")
	resetCommand.Flags().String("sentinel", "", "Sentinel file to remove.")
}

// reset clears the configured marker so the next install run reconfigures
// the node. The flag file backup is left in place.
func reset() error {
	path := viper.GetString("sentinel")
	if path == "" && viper.GetString("config") != "" {
		manifest, err := loadEnvAndManifest()
		if err != nil {
			return err
		}
		path = manifest.Spec.SentinelPath
	}

	store := sentinel.NewStore(afero.NewOsFs(), path)
	if err := store.Clear(); err != nil {
		return err
	}
	installerLog.Info("sentinel cleared, next install run reconfigures the node", "path", store.Path())
	return nil
}

func runReset(_ *cobra.Command, _ []string) {
	if err := reset(); err != nil {
		installerLog.Error(err, "reset")
		os.Exit(1)
	}
}

var resetCommand = &cobra.Command{
	Use:    "reset",
	Short:  "Clear the configured marker",
	Long:   "Clear the configured marker so install runs again; the flag file backup is not touched",
	PreRun: bindCommandFlags,
	Run:    runReset,
}
