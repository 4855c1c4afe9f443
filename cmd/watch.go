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
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aws/eks-anywhere-credential-provider/pkg/sentinel"
)

func init() {
	rootCmd.AddCommand(watchCommand)
	addInstallFlags(watchCommand)
}

// watch applies the configuration once, then stays resident and reapplies
// whenever the sentinel is removed or the manifest is rewritten. Node
// cleanup tooling removes the sentinel to request reconfiguration.
func watch(ctx context.Context) error {
	manifest, err := loadEnvAndManifest()
	if err != nil {
		return err
	}
	if result, err := apply(ctx, manifest); err != nil {
		installerLog.Error(err, "configuration attempt failed", "state", string(result.State))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	sentinelPath := sentinel.NewStore(afero.NewOsFs(), manifest.Spec.SentinelPath).Path()
	configFile := viper.GetString("config")

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !shouldReapply(event, sentinelPath, configFile) {
					continue
				}
				installerLog.Info("reapplying configuration", "event", event.String())
				manifest, err := loadEnvAndManifest()
				if err != nil {
					installerLog.Error(err, "reloading configuration")
					continue
				}
				if result, err := apply(ctx, manifest); err != nil {
					installerLog.Error(err, "configuration attempt failed", "state", string(result.State))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				installerLog.Error(err, "watch error")
			}
		}
	}()

	// fsnotify delivers remove and create events for the directory being
	// watched, so watch parents and filter on the event name.
	sentinelDir := filepath.Dir(sentinelPath)
	if err := afero.NewOsFs().MkdirAll(sentinelDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", sentinelDir, err)
	}
	if err := watcher.Add(sentinelDir); err != nil {
		return fmt.Errorf("watching %s: %w", sentinelDir, err)
	}
	if configFile != "" {
		if err := watcher.Add(filepath.Dir(configFile)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(configFile), err)
		}
	}

	<-ctx.Done()
	return nil
}

// shouldReapply decides whether a filesystem event invalidates the current
// node configuration.
func shouldReapply(event fsnotify.Event, sentinelPath, configFile string) bool {
	if event.Name == sentinelPath && event.Has(fsnotify.Remove) {
		return true
	}
	if configFile != "" && event.Name == configFile && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
		return true
	}
	return false
}

func runWatch(cmd *cobra.Command, _ []string) {
	if err := watch(cmd.Context()); err != nil {
		installerLog.Error(err, "watch")
	}
}

var watchCommand = &cobra.Command{
	Use:    "watch",
	Short:  "Configure the node and reapply on sentinel or manifest changes",
	Long:   "Run install once, then stay resident and reconfigure the node whenever the sentinel is removed or the manifest changes",
	PreRun: bindCommandFlags,
	Run:    runWatch,
}
