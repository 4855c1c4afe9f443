package service

import (
	"context"
	"errors"
	"testing"
	"time"

	systemddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/go-logr/logr"
	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	jobResult     string
	restartErr    error
	states        []string
	stateIdx      int
	restartedUnit string
	closed        bool
}

func (f *fakeConn) RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error) {
	f.restartedUnit = name
	if f.restartErr != nil {
		return 0, f.restartErr
	}
	ch <- f.jobResult
	return 1, nil
}

func (f *fakeConn) GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*systemddbus.Property, error) {
	state := f.states[len(f.states)-1]
	if f.stateIdx < len(f.states) {
		state = f.states[f.stateIdx]
		f.stateIdx++
	}
	return &systemddbus.Property{Name: propertyName, Value: godbus.MakeVariant(state)}, nil
}

func (f *fakeConn) Close() { f.closed = true }

func newTestController(conn *fakeConn) *SystemdController {
	c := NewSystemdController(logr.Discard())
	c.settleTimeout = 200 * time.Millisecond
	c.pollInterval = 10 * time.Millisecond
	c.connect = func(ctx context.Context) (dbusConn, error) { return conn, nil }
	c.tail = func(ctx context.Context, unit string, lines int) string { return "tail for " + unit }
	return c
}

func TestSystemdRestart(t *testing.T) {
	tests := []struct {
		name        string
		conn        *fakeConn
		wantStarted bool
		wantTail    string
	}{
		{
			name:        "unit becomes active",
			conn:        &fakeConn{jobResult: "done", states: []string{"activating", "activating", "active"}},
			wantStarted: true,
		},
		{
			name:     "unit ends up failed",
			conn:     &fakeConn{jobResult: "done", states: []string{"activating", "failed"}},
			wantTail: "tail for kubelet.service",
		},
		{
			name:     "unit never settles",
			conn:     &fakeConn{jobResult: "done", states: []string{"activating"}},
			wantTail: "tail for kubelet.service",
		},
		{
			name:     "restart job fails",
			conn:     &fakeConn{jobResult: "failed", states: []string{"inactive"}},
			wantTail: "tail for kubelet.service",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(tt.conn)
			outcome, err := c.Restart(context.Background(), "kubelet")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStarted, outcome.Started)
			assert.Equal(t, tt.wantTail, outcome.LogsTail)
			assert.Equal(t, "kubelet.service", tt.conn.restartedUnit)
			assert.True(t, tt.conn.closed)
		})
	}
}

func TestSystemdRestartErrors(t *testing.T) {
	c := newTestController(&fakeConn{restartErr: errors.New("dbus down"), states: []string{"inactive"}})
	_, err := c.Restart(context.Background(), "kubelet")
	assert.ErrorContains(t, err, "restarting kubelet.service")

	c = NewSystemdController(logr.Discard())
	c.connect = func(ctx context.Context) (dbusConn, error) { return nil, errors.New("no bus") }
	_, err = c.Restart(context.Background(), "kubelet")
	assert.ErrorContains(t, err, "connecting to systemd")
}

func TestSystemdActive(t *testing.T) {
	c := newTestController(&fakeConn{states: []string{"active"}})
	active, err := c.Active(context.Background(), "kubelet")
	require.NoError(t, err)
	assert.True(t, active)

	c = newTestController(&fakeConn{states: []string{"inactive"}})
	active, err = c.Active(context.Background(), "kubelet")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestNormalizeUnit(t *testing.T) {
	assert.Equal(t, "kubelet.service", normalizeUnit("kubelet"))
	assert.Equal(t, "kubelet.service", normalizeUnit("kubelet.service"))
	assert.Equal(t, "kubelet.slice", normalizeUnit("kubelet.slice"))
}
