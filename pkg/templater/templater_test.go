package templater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	got, err := Execute("name: {{ .Name }}", struct{ Name string }{Name: "kubelet"})
	require.NoError(t, err)
	assert.Equal(t, "name: kubelet", string(got))
}

func TestExecuteBadTemplate(t *testing.T) {
	_, err := Execute("{{ .Name", nil)
	assert.ErrorContains(t, err, "parsing template")
}

func TestExecuteMissingKey(t *testing.T) {
	_, err := Execute("{{ .Missing }}", map[string]string{"Name": "kubelet"})
	assert.ErrorContains(t, err, "executing template")
}
