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
	"bytes"
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed installerconfig_schema.json
var installerConfigSchema string

// ValidateInstallerConfig checks a manifest against the spec schema. The
// returned error lists every violation, one per line.
func ValidateInstallerConfig(config *InstallerConfig) error {
	if config.Kind != "" && config.Kind != InstallerConfigKind {
		return fmt.Errorf("expected kind %s, got %s", InstallerConfigKind, config.Kind)
	}
	if config.APIVersion != "" && config.APIVersion != GroupVersion {
		return fmt.Errorf("expected apiVersion %s, got %s", GroupVersion, config.APIVersion)
	}

	sl := gojsonschema.NewSchemaLoader()
	schema, err := sl.Compile(gojsonschema.NewStringLoader(installerConfigSchema))
	if err != nil {
		return fmt.Errorf("error compiling schema %v", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config.Spec))
	if err != nil {
		return fmt.Errorf("error validating configuration %v", err)
	}

	if !result.Valid() {
		b := new(bytes.Buffer)
		for _, e := range result.Errors() {
			fmt.Fprintf(b, "- %s\n", e)
		}
		return fmt.Errorf("error validating configuration %s", b.String())
	}
	return nil
}
