// Package templater renders embedded text templates with missing-key
// detection, so a template referencing a field the data does not carry
// fails loudly instead of emitting "<no value>".
package templater

import (
	"bytes"
	"fmt"
	"text/template"
)

// Execute renders templateContent against data.
func Execute(templateContent string, data interface{}) ([]byte, error) {
	tpl, err := template.New("template").Option("missingkey=error").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}
