// Package validate inspects a candidate flag file document before it is
// allowed anywhere near disk. Every check runs regardless of earlier
// failures so a single report shows everything wrong with the candidate.
package validate

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/aws/eks-anywhere-credential-provider/pkg/flagfile"
	"github.com/aws/eks-anywhere-credential-provider/pkg/planner"
)

// Check names, in the order they run and appear in a Report.
const (
	CheckConfigPath     = "config-path-matches"
	CheckBinDir         = "bin-dir-matches"
	CheckFeatureGates   = "feature-gates-present"
	CheckWellFormed     = "flag-line-well-formed"
	CheckObsoleteConfig = "obsolete-config-path-absent"
	CheckObsoleteBinDir = "obsolete-bin-dir-absent"
)

const absent = "(absent)"

// Check is a single validation outcome.
type Check struct {
	Name     string
	Passed   bool
	Observed string
	Expected string
}

// Report is the ordered result of running all checks.
type Report struct {
	Checks []Check
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass, in run order.
func (r Report) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Run validates candidate against the desired state. All six checks run
// unconditionally; callers decide what to do with a failing report.
func Run(candidate *flagfile.Document, desired planner.DesiredState) Report {
	return Report{Checks: []Check{
		flagMatches(CheckConfigPath, candidate, flagfile.ConfigFlag, desired.ConfigPath),
		flagMatches(CheckBinDir, candidate, flagfile.BinDirFlag, desired.BinDir),
		gatesPresent(candidate, desired.RequiredFeatureGates),
		wellFormed(candidate),
		obsoleteAbsent(CheckObsoleteConfig, candidate, desired.ObsoleteConfigPath),
		obsoleteAbsent(CheckObsoleteBinDir, candidate, desired.ObsoleteBinDir),
	}}
}

func flagMatches(name string, doc *flagfile.Document, flag, want string) Check {
	got, ok := doc.Flag(flag)
	if !ok {
		got = absent
	}
	return Check{Name: name, Passed: ok && got == want, Observed: got, Expected: want}
}

func gatesPresent(doc *flagfile.Document, required []planner.Gate) Check {
	check := Check{Name: CheckFeatureGates, Passed: true}
	if len(required) == 0 {
		check.Observed = "no gates required"
		check.Expected = "no gates required"
		return check
	}
	gates := doc.FeatureGates()
	var wants, wrong []string
	for _, g := range required {
		want := fmt.Sprintf("%s=%t", g.Name, g.Enabled)
		wants = append(wants, want)
		got, ok := gates.Get(g.Name)
		switch {
		case !ok:
			wrong = append(wrong, g.Name+" missing")
		case got != fmt.Sprintf("%t", g.Enabled):
			wrong = append(wrong, fmt.Sprintf("%s=%s", g.Name, got))
		}
	}
	check.Expected = strings.Join(wants, ",")
	if len(wrong) > 0 {
		check.Passed = false
		check.Observed = strings.Join(wrong, ", ")
	} else {
		check.Observed = check.Expected
	}
	return check
}

// wellFormed verifies the flag line parses cleanly: the line exists, any
// opening quote is closed, and none of the flags this tool owns appear
// more than once.
func wellFormed(doc *flagfile.Document) Check {
	check := Check{Name: CheckWellFormed, Passed: true, Expected: "parseable flag line without duplicates", Observed: "ok"}
	owned := sets.New(flagfile.BinDirFlag, flagfile.ConfigFlag, flagfile.FeatureGatesFlag)

	var problems []string
	if !doc.HasFlagLine() {
		problems = append(problems, fmt.Sprintf("no %s line", doc.VarName()))
	}
	if doc.Unterminated() {
		problems = append(problems, "unterminated quote")
	}
	for _, dup := range doc.DuplicateFlags(sets.List(owned)...) {
		problems = append(problems, "duplicate --"+dup)
	}
	if len(problems) > 0 {
		check.Passed = false
		check.Observed = strings.Join(problems, ", ")
	}
	return check
}

func obsoleteAbsent(name string, doc *flagfile.Document, value string) Check {
	if value == "" {
		return Check{Name: name, Passed: true, Observed: "no obsolete value configured", Expected: "nothing to scrub"}
	}
	check := Check{Name: name, Passed: true, Observed: "not present", Expected: value + " absent"}
	if doc.Contains(value) {
		check.Passed = false
		check.Observed = value + " still present"
	}
	return check
}
