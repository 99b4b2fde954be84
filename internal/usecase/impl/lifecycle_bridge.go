package impl

import (
	"context"
	"log/slog"

	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/service"
	"spotfence/internal/usecase"

	"github.com/paulmach/orb"
)

const mailboxSize = 128

type eventKind int

const (
	kindLifecycle eventKind = iota
	kindLocation
	kindRegionEntry
	kindSynchronize
)

type bridgeEvent struct {
	kind     eventKind
	phase    entity.LifecyclePhase
	location orb.Point
	region   *entity.RegionEvent
}

// LifecycleBridge redispatches platform callbacks onto one owning goroutine
// before they touch engine state. The platform delivers callbacks on
// arbitrary contexts; the bridge is the single-consumer mailbox that
// serializes them, the Go rendition of the source's main-thread hop.
type LifecycleBridge struct {
	engine      usecase.GeofenceUsecase
	permissions service.PermissionService
	logger      *slog.Logger
	mailbox     chan bridgeEvent
}

// NewLifecycleBridge creates a new lifecycle bridge instance.
func NewLifecycleBridge(engine usecase.GeofenceUsecase, permissions service.PermissionService, logger *slog.Logger) *LifecycleBridge {
	return &LifecycleBridge{
		engine:      engine,
		permissions: permissions,
		logger:      logger,
		mailbox:     make(chan bridgeEvent, mailboxSize),
	}
}

// Run consumes the mailbox and the authorization event stream until the
// context is cancelled. It is the only goroutine that invokes the engine's
// observe methods.
func (b *LifecycleBridge) Run(ctx context.Context) {
	authEvents := b.permissions.AuthorizationEvents()
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-authEvents:
			if !ok {
				authEvents = nil

				continue
			}
			b.engine.ObserveAuthorization(ctx, state)
		case ev := <-b.mailbox:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *LifecycleBridge) dispatch(ctx context.Context, ev bridgeEvent) {
	switch ev.kind {
	case kindLifecycle:
		b.engine.ObserveLifecycle(ctx, ev.phase)
	case kindLocation:
		b.engine.ObserveLocation(ctx, ev.location)
	case kindRegionEntry:
		b.engine.HandleRegionEntry(ctx, ev.region)
	case kindSynchronize:
		b.engine.SynchronizeNow(ctx)
	}
}

// OnLifecyclePhase enqueues an app lifecycle transition.
func (b *LifecycleBridge) OnLifecyclePhase(phase entity.LifecyclePhase) {
	b.enqueue(bridgeEvent{kind: kindLifecycle, phase: phase})
}

// OnLocationUpdated enqueues a location-update callback.
func (b *LifecycleBridge) OnLocationUpdated(location orb.Point) {
	b.enqueue(bridgeEvent{kind: kindLocation, location: location})
}

// OnRegionEntered enqueues a region-entry callback.
func (b *LifecycleBridge) OnRegionEntered(event *entity.RegionEvent) {
	b.enqueue(bridgeEvent{kind: kindRegionEntry, region: event})
}

// RequestSynchronize enqueues a reconciliation trigger. The engine's own
// in-flight guard still applies once the event is dispatched.
func (b *LifecycleBridge) RequestSynchronize() {
	b.enqueue(bridgeEvent{kind: kindSynchronize})
}

// enqueue never blocks a platform callback: when the mailbox is full the
// event is dropped, since every trigger recurs with fresher inputs.
func (b *LifecycleBridge) enqueue(ev bridgeEvent) {
	select {
	case b.mailbox <- ev:
	default:
		b.logger.Warn("lifecycle mailbox full, dropping event", slog.Int("kind", int(ev.kind)))
	}
}
