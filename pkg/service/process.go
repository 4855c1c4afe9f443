package service

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	ps "github.com/mitchellh/go-ps"
)

// ProcessController is the fallback for hosts not managed by systemd. It
// signals the agent process directly with SIGHUP and relies on the host's
// supervisor to respawn it with the new configuration.
type ProcessController struct {
	log        logr.Logger
	executable string
	settle     time.Duration

	processes func() ([]ps.Process, error)
	signal    func(pid int, sig syscall.Signal) error
}

var _ Controller = (*ProcessController)(nil)

func NewProcessController(log logr.Logger, executable string) *ProcessController {
	return &ProcessController{
		log:        log.WithName("process"),
		executable: executable,
		settle:     defaultSettleTimeout,
		processes:  ps.Processes,
		signal:     syscall.Kill,
	}
}

// Restart signals the process and waits for it to be running again. A
// process that is not running to begin with is not an error; the outcome
// simply reports whether one is running at the end.
func (c *ProcessController) Restart(ctx context.Context, unit string) (RestartOutcome, error) {
	proc, err := c.find()
	if err != nil {
		return RestartOutcome{}, err
	}
	if proc == nil {
		c.log.Info("process not running, nothing to signal", "executable", c.executable)
	} else {
		c.log.Info("signaling process", "executable", c.executable, "pid", proc.Pid())
		if err := c.signal(proc.Pid(), syscall.SIGHUP); err != nil {
			return RestartOutcome{}, fmt.Errorf("signaling %s (pid %d): %w", c.executable, proc.Pid(), err)
		}
	}

	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
		return RestartOutcome{}, ctx.Err()
	}

	proc, err = c.find()
	if err != nil {
		return RestartOutcome{}, err
	}
	if proc == nil {
		c.log.Info("process did not come back", "executable", c.executable)
		return RestartOutcome{}, nil
	}
	return RestartOutcome{Started: true}, nil
}

// Active reports whether the process is currently running.
func (c *ProcessController) Active(ctx context.Context, unit string) (bool, error) {
	proc, err := c.find()
	if err != nil {
		return false, err
	}
	return proc != nil, nil
}

func (c *ProcessController) find() (ps.Process, error) {
	procs, err := c.processes()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	for _, p := range procs {
		if p.Executable() == c.executable {
			return p, nil
		}
	}
	return nil, nil
}
