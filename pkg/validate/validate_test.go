package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/eks-anywhere-credential-provider/pkg/flagfile"
	"github.com/aws/eks-anywhere-credential-provider/pkg/planner"
)

var desired = planner.DesiredState{
	BinDir:               "/etc/eks/image-credential-provider",
	ConfigPath:           "/etc/eks/image-credential-provider/config.yaml",
	RequiredFeatureGates: []planner.Gate{{Name: "KubeletCredentialProviders", Enabled: true}},
	ObsoleteBinDir:       "/old-bin",
	ObsoleteConfigPath:   "/old-config.yaml",
}

const goodLine = "KUBELET_FLAGS=\"--image-credential-provider-bin-dir=/etc/eks/image-credential-provider " +
	"--image-credential-provider-config=/etc/eks/image-credential-provider/config.yaml " +
	"--feature-gates=KubeletCredentialProviders=true\"\n"

func run(t *testing.T, raw string, d planner.DesiredState) Report {
	t.Helper()
	return Run(flagfile.Parse([]byte(raw), "KUBELET_FLAGS"), d)
}

func TestRunOrderAndFullPass(t *testing.T) {
	report := run(t, goodLine, desired)

	wantOrder := []string{
		CheckConfigPath,
		CheckBinDir,
		CheckFeatureGates,
		CheckWellFormed,
		CheckObsoleteConfig,
		CheckObsoleteBinDir,
	}
	require.Len(t, report.Checks, len(wantOrder))
	for i, c := range report.Checks {
		assert.Equal(t, wantOrder[i], c.Name)
		assert.True(t, c.Passed, "check %s should pass: observed %q", c.Name, c.Observed)
	}
	assert.True(t, report.Passed())
	assert.Empty(t, report.Failed())
}

func TestRunSingleFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		desired  planner.DesiredState
		wantFail string
	}{
		{
			name: "wrong config path",
			raw: "KUBELET_FLAGS=\"--image-credential-provider-bin-dir=/etc/eks/image-credential-provider " +
				"--image-credential-provider-config=/somewhere/else.yaml " +
				"--feature-gates=KubeletCredentialProviders=true\"\n",
			desired:  desired,
			wantFail: CheckConfigPath,
		},
		{
			name: "wrong bin dir",
			raw: "KUBELET_FLAGS=\"--image-credential-provider-bin-dir=/somewhere/else " +
				"--image-credential-provider-config=/etc/eks/image-credential-provider/config.yaml " +
				"--feature-gates=KubeletCredentialProviders=true\"\n",
			desired:  desired,
			wantFail: CheckBinDir,
		},
		{
			name: "required gate missing",
			raw: "KUBELET_FLAGS=\"--image-credential-provider-bin-dir=/etc/eks/image-credential-provider " +
				"--image-credential-provider-config=/etc/eks/image-credential-provider/config.yaml " +
				"--feature-gates=A=true\"\n",
			desired:  desired,
			wantFail: CheckFeatureGates,
		},
		{
			name: "duplicate owned flag",
			raw: "KUBELET_FLAGS=\"--image-credential-provider-bin-dir=/etc/eks/image-credential-provider " +
				"--image-credential-provider-bin-dir=/etc/eks/image-credential-provider " +
				"--image-credential-provider-config=/etc/eks/image-credential-provider/config.yaml " +
				"--feature-gates=KubeletCredentialProviders=true\"\n",
			desired:  desired,
			wantFail: CheckWellFormed,
		},
		{
			name: "obsolete config path lingers in another line",
			raw:  goodLine + "KUBELET_EXTRA_ARGS=\"--image-credential-provider-config=/old-config.yaml\"\n",
			desired:  desired,
			wantFail: CheckObsoleteConfig,
		},
		{
			name: "obsolete bin dir equals the desired bin dir",
			raw:  goodLine,
			desired: planner.DesiredState{
				BinDir:               desired.BinDir,
				ConfigPath:           desired.ConfigPath,
				RequiredFeatureGates: desired.RequiredFeatureGates,
				ObsoleteBinDir:       desired.BinDir,
			},
			wantFail: CheckObsoleteBinDir,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := run(t, tt.raw, tt.desired)

			failed := report.Failed()
			require.Len(t, failed, 1, "exactly one check should fail")
			assert.Equal(t, tt.wantFail, failed[0].Name)
			assert.False(t, report.Passed())
			assert.Len(t, report.Checks, 6, "all checks must still run")
		})
	}
}

func TestRunDoesNotShortCircuit(t *testing.T) {
	// Wrong config path, wrong bin dir, missing gate and an unterminated
	// quote all at once: each check must report its own failure.
	raw := "KUBELET_FLAGS=\"--image-credential-provider-bin-dir=/somewhere/else\n"
	report := run(t, raw, desired)

	require.Len(t, report.Checks, 6)
	assert.Len(t, report.Failed(), 4)
	assert.False(t, report.Checks[0].Passed)
	assert.False(t, report.Checks[1].Passed)
	assert.False(t, report.Checks[2].Passed)
	assert.False(t, report.Checks[3].Passed)
	assert.True(t, report.Checks[4].Passed)
	assert.True(t, report.Checks[5].Passed)
}

func TestRunMissingFlagLine(t *testing.T) {
	report := run(t, "# nothing here\n", desired)
	assert.False(t, report.Passed())

	var names []string
	for _, c := range report.Failed() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, CheckWellFormed)
}
