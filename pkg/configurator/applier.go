// Package configurator drives the end-to-end rollout: decide whether work
// is needed, stage the provider binary and config, patch the kubelet flag
// file, bounce the service, and either commit the result or roll it back.
package configurator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/aws/eks-anywhere-credential-provider/pkg/artifacts"
	"github.com/aws/eks-anywhere-credential-provider/pkg/backup"
	"github.com/aws/eks-anywhere-credential-provider/pkg/descriptor"
	"github.com/aws/eks-anywhere-credential-provider/pkg/flagfile"
	"github.com/aws/eks-anywhere-credential-provider/pkg/planner"
	"github.com/aws/eks-anywhere-credential-provider/pkg/sentinel"
	"github.com/aws/eks-anywhere-credential-provider/pkg/service"
	"github.com/aws/eks-anywhere-credential-provider/pkg/utils"
	"github.com/aws/eks-anywhere-credential-provider/pkg/validate"
)

// State names the stages of a rollout. Terminal states are Skipped, Done,
// Aborted and Failed; everything else marks progress.
type State string

const (
	StateCheckSentinel State = "CHECK_SENTINEL"
	StateParse         State = "PARSE"
	StatePlan          State = "PLAN"
	StateValidate      State = "VALIDATE"
	StateBackup        State = "BACKUP"
	StateWrite         State = "WRITE"
	StateRestart       State = "RESTART"
	StateVerify        State = "VERIFY"
	StateSentinelSet   State = "SENTINEL_SET"
	StateRollback      State = "ROLLBACK"

	// StateSkipped means the sentinel was present and nothing ran.
	StateSkipped State = "SKIPPED"
	// StateDone means the new configuration is live and the sentinel set.
	StateDone State = "DONE"
	// StateAborted means validation or an earlier step stopped the run
	// before the flag file was touched.
	StateAborted State = "ABORTED"
	// StateFailed means the flag file was written but the rollout did
	// not stick; the previous contents were restored from backup.
	StateFailed State = "FAILED"
)

// Config carries everything a rollout needs to know about the node.
type Config struct {
	// FlagFile is the env style file holding the kubelet flag line.
	FlagFile string
	// FlagVar is the variable within FlagFile; empty means KUBELET_FLAGS.
	FlagVar string
	// Unit is the service to restart once the file changes.
	Unit string
	// SentinelPath marks completed rollouts; empty uses the default.
	SentinelPath string

	Desired    planner.DesiredState
	Descriptor descriptor.Spec
}

// Result reports how a rollout ended. Diff and Report are populated as
// soon as the corresponding stages have run, including on failure.
type Result struct {
	State  State
	Diff   []planner.Change
	Report *validate.Report
}

// Applier owns one node rollout. Filesystem access goes through the
// injected afero.Fs and service control through the injected Controller,
// so the whole state machine runs against fakes in tests.
type Applier struct {
	fs        afero.Fs
	log       logr.Logger
	service   service.Controller
	installer artifacts.Installer
	backups   *backup.Manager
	marker    *sentinel.Store
	writer    *descriptor.Writer
	cfg       Config
}

func NewApplier(log logr.Logger, fs afero.Fs, svc service.Controller, installer artifacts.Installer, cfg Config) *Applier {
	return &Applier{
		fs:        fs,
		log:       log.WithName("configurator"),
		service:   svc,
		installer: installer,
		backups:   backup.NewManager(fs, log),
		marker:    sentinel.NewStore(fs, cfg.SentinelPath),
		writer:    descriptor.NewWriter(fs, log),
		cfg:       cfg,
	}
}

// Apply runs the full state machine. The returned error is non-nil for
// Aborted and Failed outcomes and carries the cause; Skipped and Done
// return a nil error.
func (a *Applier) Apply(ctx context.Context) (Result, error) {
	a.step(StateCheckSentinel)
	configured, err := a.marker.Exists()
	if err != nil {
		return Result{State: StateAborted}, err
	}
	if configured {
		a.log.Info("node already configured, nothing to do", "sentinel", a.marker.Path())
		return Result{State: StateSkipped}, nil
	}

	a.step(StateParse)
	doc, err := flagfile.Load(a.fs, a.cfg.FlagFile, a.cfg.FlagVar)
	if err != nil {
		return Result{State: StateAborted}, err
	}

	a.step(StatePlan)
	plan := planner.Plan(doc, a.cfg.Desired)
	res := Result{Diff: plan.Diff}
	for _, c := range plan.Diff {
		a.log.Info("planned change", "change", c.String())
	}
	if plan.Empty() {
		a.log.Info("flag file already matches desired state")
	}

	a.step(StateValidate)
	report := validate.Run(plan.Candidate, a.cfg.Desired)
	res.Report = &report
	if !report.Passed() {
		names := utils.Map(report.Failed(), func(c validate.Check) string { return c.Name })
		res.State = StateAborted
		return res, fmt.Errorf("candidate flag file failed validation: %s", strings.Join(names, ", "))
	}

	a.step(StateBackup)
	rec, err := a.backups.EnsureBackup(a.cfg.FlagFile)
	if err != nil {
		res.State = StateAborted
		return res, err
	}

	// The binary and config descriptor go in before the flag file starts
	// referencing them, so kubelet never observes a dangling reference.
	if _, err := a.installer.Install(ctx, a.cfg.Descriptor.BinaryName, a.cfg.Desired.BinDir); err != nil {
		res.State = StateAborted
		return res, err
	}
	if err := a.writer.Write(a.cfg.Descriptor, a.cfg.Desired.ConfigPath); err != nil {
		res.State = StateAborted
		return res, err
	}

	a.step(StateWrite)
	mode := utils.FileMode(a.fs, a.cfg.FlagFile, 0o644)
	if err := utils.WriteFileAtomic(a.fs, a.cfg.FlagFile, plan.Candidate.Bytes(), mode); err != nil {
		res.State = StateAborted
		return res, err
	}

	a.step(StateRestart)
	outcome, err := a.service.Restart(ctx, a.cfg.Unit)
	if err != nil {
		return a.rollback(ctx, res, rec, fmt.Errorf("restarting %s: %w", a.cfg.Unit, err))
	}

	a.step(StateVerify)
	if !outcome.Started {
		if outcome.LogsTail != "" {
			a.log.Info("service logs after failed restart", "unit", a.cfg.Unit, "logs", outcome.LogsTail)
		}
		return a.rollback(ctx, res, rec, fmt.Errorf("%s did not become active with the new configuration", a.cfg.Unit))
	}

	a.step(StateSentinelSet)
	if err := a.marker.Set(); err != nil {
		// The rollout itself succeeded; only the marker is missing. The
		// next run redoes the work, replans an empty diff, and tries the
		// marker again.
		res.State = StateFailed
		return res, fmt.Errorf("configuration applied but sentinel write failed: %w", err)
	}

	res.State = StateDone
	a.log.Info("node configured", "flagFile", a.cfg.FlagFile, "unit", a.cfg.Unit, "changes", len(res.Diff))
	return res, nil
}

// rollback restores the backup, restarts the service on the old contents,
// and reports the rollout as failed with the original cause.
func (a *Applier) rollback(ctx context.Context, res Result, rec backup.Record, cause error) (Result, error) {
	a.step(StateRollback)
	a.log.Error(cause, "rolling back to previous configuration", "backup", rec.BackupPath)

	if rerr := a.backups.Restore(rec); rerr != nil {
		res.State = StateFailed
		return res, fmt.Errorf("rollback failed: %v (rolling back because: %v)", rerr, cause)
	}

	a.step(StateRestart)
	outcome, err := a.service.Restart(ctx, a.cfg.Unit)
	switch {
	case err != nil:
		a.log.Error(err, "restart on restored configuration failed", "unit", a.cfg.Unit)
	case !outcome.Started:
		a.log.Info("service still not active on restored configuration", "unit", a.cfg.Unit, "logs", outcome.LogsTail)
	default:
		a.log.Info("service recovered on previous configuration", "unit", a.cfg.Unit)
	}

	res.State = StateFailed
	return res, cause
}

// Check runs the read-only half of the rollout: parse, plan and validate,
// touching nothing on disk.
func (a *Applier) Check(ctx context.Context) (validate.Report, []planner.Change, error) {
	doc, err := flagfile.Load(a.fs, a.cfg.FlagFile, a.cfg.FlagVar)
	if err != nil {
		return validate.Report{}, nil, err
	}
	plan := planner.Plan(doc, a.cfg.Desired)
	return validate.Run(plan.Candidate, a.cfg.Desired), plan.Diff, nil
}

func (a *Applier) step(s State) {
	a.log.V(1).Info("entering state", "state", string(s))
}
