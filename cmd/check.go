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
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCommand)
	addInstallFlags(checkCommand)
}

// check runs the read-only half of an install and prints what it found.
// Nothing on the node is modified.
func check(ctx context.Context) error {
	manifest, err := loadEnvAndManifest()
	if err != nil {
		return err
	}

	report, diff, err := newApplier(manifest).Check(ctx)
	if err != nil {
		return err
	}

	for _, c := range report.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("%s %s observed <%s> expected <%s>\n", status, c.Name, c.Observed, c.Expected)
	}
	if len(diff) == 0 {
		fmt.Println("flag file already matches desired state")
	}
	for _, change := range diff {
		fmt.Println(change.String())
	}

	if !report.Passed() {
		return fmt.Errorf("%d validation checks failed", len(report.Failed()))
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) {
	if err := check(cmd.Context()); err != nil {
		installerLog.Error(err, "check")
		os.Exit(1)
	}
}

var checkCommand = &cobra.Command{
	Use:    "check",
	Short:  "Validate the kubelet configuration this node would end up with",
	Long:   "Parse the kubelet flag file, plan the changes an install would make, and validate the result without touching anything",
	PreRun: bindCommandFlags,
	Run:    runCheck,
}
