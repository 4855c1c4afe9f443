// Package service restarts the node agent that consumes the configuration
// this tool writes, and reports whether the agent came back healthy.
package service

import "context"

//go:generate mockgen -source service.go -destination=mocks/service.go -package=mocks

// RestartOutcome describes how a restart went. Started is the only signal
// callers branch on; LogsTail carries recent service logs when the unit
// did not come back, purely so failures land in our output with context.
type RestartOutcome struct {
	Started  bool
	LogsTail string
}

// Controller restarts a service and waits for it to settle. Restart is
// re-entrant: restarting an already-failed or stopped service is still
// just a restart. An error return means the restart could not even be
// attempted or observed; a clean return with Started false means the
// service was restarted but never became active within the settle window.
type Controller interface {
	Restart(ctx context.Context, unit string) (RestartOutcome, error)
	Active(ctx context.Context, unit string) (bool, error)
}
