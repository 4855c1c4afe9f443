package service

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	systemddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	defaultSettleTimeout = 30 * time.Second
	defaultPollInterval  = time.Second
	defaultTailLines     = 40
)

// dbusConn is the slice of the systemd dbus API the controller needs.
type dbusConn interface {
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*systemddbus.Property, error)
	Close()
}

// SystemdController restarts units over the systemd dbus API. After asking
// for a restart it waits, bounded, for the unit to report active, and
// collects a journal tail when it does not.
type SystemdController struct {
	log           logr.Logger
	settleTimeout time.Duration
	pollInterval  time.Duration
	tailLines     int

	connect func(ctx context.Context) (dbusConn, error)
	tail    func(ctx context.Context, unit string, lines int) string
}

var _ Controller = (*SystemdController)(nil)

func NewSystemdController(log logr.Logger) *SystemdController {
	return &SystemdController{
		log:           log.WithName("systemd"),
		settleTimeout: defaultSettleTimeout,
		pollInterval:  defaultPollInterval,
		tailLines:     defaultTailLines,
		connect: func(ctx context.Context) (dbusConn, error) {
			return systemddbus.NewSystemConnectionContext(ctx)
		},
		tail: journalTail,
	}
}

// WithSettleTimeout bounds how long Restart waits for the unit to become
// active before declaring the restart unsuccessful.
func (c *SystemdController) WithSettleTimeout(d time.Duration) *SystemdController {
	c.settleTimeout = d
	return c
}

// Restart issues a restart for the unit and waits for it to settle. The
// unit not coming back is reported through the outcome, not as an error,
// so callers can roll back rather than bail out.
func (c *SystemdController) Restart(ctx context.Context, unit string) (RestartOutcome, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return RestartOutcome{}, fmt.Errorf("connecting to systemd: %w", err)
	}
	defer conn.Close()

	unitName := normalizeUnit(unit)
	c.log.Info("restarting unit", "unit", unitName)

	jobs := make(chan string, 1)
	if _, err := conn.RestartUnitContext(ctx, unitName, "replace", jobs); err != nil {
		return RestartOutcome{}, fmt.Errorf("restarting %s: %w", unitName, err)
	}
	select {
	case result := <-jobs:
		if result != "done" {
			c.log.Info("restart job did not complete", "unit", unitName, "result", result)
			return RestartOutcome{LogsTail: c.tail(ctx, unitName, c.tailLines)}, nil
		}
	case <-ctx.Done():
		return RestartOutcome{}, ctx.Err()
	}

	active, err := c.waitSettled(ctx, conn, unitName)
	if err != nil {
		return RestartOutcome{}, err
	}
	if !active {
		c.log.Info("unit did not become active", "unit", unitName, "waited", c.settleTimeout.String())
		return RestartOutcome{LogsTail: c.tail(ctx, unitName, c.tailLines)}, nil
	}
	c.log.Info("unit is active", "unit", unitName)
	return RestartOutcome{Started: true}, nil
}

// Active reports whether the unit is currently active.
func (c *SystemdController) Active(ctx context.Context, unit string) (bool, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return false, fmt.Errorf("connecting to systemd: %w", err)
	}
	defer conn.Close()

	state, err := c.activeState(ctx, conn, normalizeUnit(unit))
	if err != nil {
		return false, err
	}
	return state == "active", nil
}

func (c *SystemdController) waitSettled(ctx context.Context, conn dbusConn, unitName string) (bool, error) {
	active := false
	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, c.settleTimeout, true, func(ctx context.Context) (bool, error) {
		state, err := c.activeState(ctx, conn, unitName)
		if err != nil {
			return false, err
		}
		c.log.V(1).Info("unit state", "unit", unitName, "state", state)
		switch state {
		case "active":
			active = true
			return true, nil
		case "failed":
			// Terminal, no point waiting out the timeout.
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if !wait.Interrupted(err) {
			return false, fmt.Errorf("waiting for %s to settle: %w", unitName, err)
		}
	}
	return active, nil
}

func (c *SystemdController) activeState(ctx context.Context, conn dbusConn, unitName string) (string, error) {
	prop, err := conn.GetUnitPropertyContext(ctx, unitName, "ActiveState")
	if err != nil {
		return "", fmt.Errorf("querying ActiveState of %s: %w", unitName, err)
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected ActiveState type for %s: %v", unitName, prop.Value)
	}
	return state, nil
}

func normalizeUnit(unit string) string {
	if strings.Contains(unit, ".") {
		return unit
	}
	return unit + ".service"
}

// journalTail shells out to journalctl for the last few unit log lines.
// Log collection is best effort: any failure yields an empty tail.
func journalTail(ctx context.Context, unit string, lines int) string {
	out, err := exec.CommandContext(ctx, "journalctl", "-u", unit, "--no-pager", "-n", strconv.Itoa(lines)).CombinedOutput()
	if err != nil {
		return ""
	}
	return string(out)
}
