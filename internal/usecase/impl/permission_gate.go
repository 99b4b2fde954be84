package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/service"
)

// PermissionGate tracks the platform's location authorization and gates all
// monitoring on it. The platform owns the state; the gate only snapshots the
// latest observed value and runs the two-step request flow. It never
// escalates on its own: every upgrade attempt is driven by an explicit
// caller action.
type PermissionGate struct {
	permissions     service.PermissionService
	decisionTimeout time.Duration
	logger          *slog.Logger

	mu      sync.Mutex
	current entity.AuthorizationState
	waiters []chan entity.AuthorizationState
}

// NewPermissionGate creates a new permission gate instance.
func NewPermissionGate(permissions service.PermissionService, decisionTimeout time.Duration, logger *slog.Logger) *PermissionGate {
	return &PermissionGate{
		permissions:     permissions,
		decisionTimeout: decisionTimeout,
		logger:          logger,
		current:         entity.AuthorizationUndetermined,
	}
}

// CurrentAuthorization returns the last observed authorization state.
func (g *PermissionGate) CurrentAuthorization() entity.AuthorizationState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.current
}

// Observe applies an authorization-change callback and reports whether the
// transition regressed away from the always grant, in which case the caller
// must tear down all monitoring.
func (g *PermissionGate) Observe(state entity.AuthorizationState) (regressedFromAlways bool) {
	g.mu.Lock()
	previous := g.current
	g.current = state

	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- state
		close(waiter)
	}

	return previous == entity.AuthorizationAlways && state != entity.AuthorizationAlways
}

// RequestUpgrade runs one step of the permission flow. On a first-ever
// request only the weaker while-in-use grant may be asked for, regardless of
// wantAlways; the always grant requires a second explicit attempt once
// while-in-use is held. The call waits for the authorization-change event
// carrying the user's decision, bounded by the decision timeout, and returns
// the state it ends up observing.
func (g *PermissionGate) RequestUpgrade(ctx context.Context, wantAlways bool) (entity.AuthorizationState, error) {
	current := g.CurrentAuthorization()

	var err error
	switch {
	case current == entity.AuthorizationUndetermined:
		err = g.permissions.RequestWhileInUse(ctx)
	case wantAlways && current == entity.AuthorizationWhileInUse:
		err = g.permissions.RequestAlways(ctx)
	default:
		// Denied/restricted cannot be fixed from here, and an existing
		// always grant needs nothing. Either way the decision is the user's.
		return current, nil
	}
	if err != nil {
		return current, err
	}

	return g.awaitDecision(ctx), nil
}

// awaitDecision blocks until the next authorization-change event or the
// decision timeout, then returns the freshest state available. Callers must
// re-check the returned state rather than assume the request succeeded.
func (g *PermissionGate) awaitDecision(ctx context.Context) entity.AuthorizationState {
	waiter := make(chan entity.AuthorizationState, 1)

	g.mu.Lock()
	g.waiters = append(g.waiters, waiter)
	g.mu.Unlock()

	select {
	case state := <-waiter:
		return state
	case <-time.After(g.decisionTimeout):
		g.logger.Debug("no authorization decision within timeout, re-checking platform state")
	case <-ctx.Done():
	}

	g.removeWaiter(waiter)

	state := g.permissions.CurrentAuthorization(ctx)
	g.Observe(state)

	return state
}

func (g *PermissionGate) removeWaiter(waiter chan entity.AuthorizationState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, w := range g.waiters {
		if w == waiter {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)

			break
		}
	}
}
