// Package planner computes the flag file mutation needed to point kubelet
// at the credential provider. Planning is pure: it derives a candidate
// document and a diff from the current document and the desired settings,
// and writes nothing.
package planner

import (
	"fmt"
	"strconv"

	"github.com/aws/eks-anywhere-credential-provider/pkg/flagfile"
)

// Gate is a single feature gate requirement.
type Gate struct {
	Name    string
	Enabled bool
}

func (g Gate) value() string { return strconv.FormatBool(g.Enabled) }

// DesiredState carries the settings the flag file must end up with, plus
// the stale values that must no longer appear anywhere once patched.
type DesiredState struct {
	BinDir               string
	ConfigPath           string
	RequiredFeatureGates []Gate

	// ObsoleteBinDir and ObsoleteConfigPath name values from a previous
	// installation. Empty means there is no previous installation to
	// scrub. They are checked, not rewritten: the patch replaces flag
	// values wholesale, which is what removes them.
	ObsoleteBinDir     string
	ObsoleteConfigPath string
}

// ChangeOp classifies a single diff entry.
type ChangeOp string

const (
	ChangeAdded   ChangeOp = "added"
	ChangeUpdated ChangeOp = "updated"
	ChangeRemoved ChangeOp = "removed"
)

// Change records one flag-level difference between the current document
// and the candidate. Feature gate changes are reported per gate.
type Change struct {
	Op   ChangeOp
	Flag string
	Old  string
	New  string
}

func (c Change) String() string {
	switch c.Op {
	case ChangeAdded:
		return fmt.Sprintf("add --%s=%s", c.Flag, c.New)
	case ChangeRemoved:
		return fmt.Sprintf("remove --%s=%s", c.Flag, c.Old)
	default:
		return fmt.Sprintf("update --%s: %s -> %s", c.Flag, c.Old, c.New)
	}
}

// PatchResult is the outcome of planning: the candidate document and the
// per-flag diff that produced it. An empty diff means the file already
// matches the desired state and the candidate equals the input.
type PatchResult struct {
	Candidate *flagfile.Document
	Diff      []Change
}

// Empty reports whether the plan changes nothing.
func (r PatchResult) Empty() bool { return len(r.Diff) == 0 }

// Plan computes the patch that brings current to the desired state. The
// input document is not modified. Planning is idempotent: planning against
// its own candidate yields an empty diff.
func Plan(current *flagfile.Document, desired DesiredState) PatchResult {
	work := current.Clone()
	var diff []Change

	diff = appendFlagChange(diff, work, flagfile.BinDirFlag, desired.BinDir)
	diff = appendFlagChange(diff, work, flagfile.ConfigFlag, desired.ConfigPath)
	diff = appendGateChanges(diff, work, desired.RequiredFeatureGates)

	// Re-parse the rendered candidate so validation sees exactly what
	// would land on disk.
	candidate := flagfile.Parse(work.Bytes(), work.VarName())
	return PatchResult{Candidate: candidate, Diff: diff}
}

func appendFlagChange(diff []Change, doc *flagfile.Document, flag, want string) []Change {
	got, ok := doc.Flag(flag)
	switch {
	case !ok:
		doc.SetFlag(flag, want)
		return append(diff, Change{Op: ChangeAdded, Flag: flag, New: want})
	case got != want:
		doc.SetFlag(flag, want)
		return append(diff, Change{Op: ChangeUpdated, Flag: flag, Old: got, New: want})
	}
	return diff
}

func appendGateChanges(diff []Change, doc *flagfile.Document, required []Gate) []Change {
	if len(required) == 0 {
		return diff
	}
	gates := doc.FeatureGates()
	changed := false
	for _, g := range required {
		name := flagfile.FeatureGatesFlag + ":" + g.Name
		got, ok := gates.Get(g.Name)
		switch {
		case !ok:
			gates.Set(g.Name, g.value())
			diff = append(diff, Change{Op: ChangeAdded, Flag: name, New: g.value()})
			changed = true
		case got != g.value():
			gates.Set(g.Name, g.value())
			diff = append(diff, Change{Op: ChangeUpdated, Flag: name, Old: got, New: g.value()})
			changed = true
		}
	}
	if changed {
		doc.SetFlag(flagfile.FeatureGatesFlag, gates.String())
	}
	return diff
}
