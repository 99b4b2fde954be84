package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/service"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSpotRepo serves a fixed snapshot.
type fakeSpotRepo struct {
	mu    sync.Mutex
	spots []*entity.Spot
	err   error
}

func (r *fakeSpotRepo) Snapshot(_ context.Context) ([]*entity.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*entity.Spot, len(r.spots))
	copy(out, r.spots)

	return out, nil
}

func (r *fakeSpotRepo) ReplaceSnapshot(_ context.Context, spots []*entity.Spot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spots = spots

	return nil
}

// fakeBookkeeping is an in-memory RegionBookkeepingStore.
type fakeBookkeeping struct {
	mu      sync.Mutex
	entries map[string]string
	clears  int
}

func newFakeBookkeeping() *fakeBookkeeping {
	return &fakeBookkeeping{entries: make(map[string]string)}
}

func (s *fakeBookkeeping) All(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}

	return out, nil
}

func (s *fakeBookkeeping) DisplayName(_ context.Context, spotID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.entries[spotID]

	return name, ok, nil
}

func (s *fakeBookkeeping) Upsert(_ context.Context, spotID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[spotID] = displayName

	return nil
}

func (s *fakeBookkeeping) Remove(_ context.Context, spotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, spotID)

	return nil
}

func (s *fakeBookkeeping) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]string)
	s.clears++

	return nil
}

// fakeLedger is an in-memory NotificationLedgerStore.
type fakeLedger struct {
	mu      sync.Mutex
	fired   map[string]time.Time
	readErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{fired: make(map[string]time.Time)}
}

func (s *fakeLedger) LastFired(_ context.Context, spotID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return time.Time{}, false, s.readErr
	}
	at, ok := s.fired[spotID]

	return at, ok, nil
}

func (s *fakeLedger) RecordFired(_ context.Context, spotID string, firedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired[spotID] = firedAt

	return nil
}

func (s *fakeLedger) PruneOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, at := range s.fired {
		if at.Before(cutoff) {
			delete(s.fired, id)
			pruned++
		}
	}

	return pruned, nil
}

// fakeMonitor mirrors the platform region set and counts calls.
type fakeMonitor struct {
	mu          sync.Mutex
	active      map[string]struct{}
	available   bool
	startCalls  int
	stopCalls   int
	startErrFor map[string]error
	activeErr   error
	entered     chan struct{}
	gate        chan struct{}
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{active: make(map[string]struct{}), available: true}
}

func (m *fakeMonitor) StartMonitoring(_ context.Context, spotID string, _ orb.Point, _ float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if err, ok := m.startErrFor[spotID]; ok {
		return err
	}
	m.active[spotID] = struct{}{}

	return nil
}

func (m *fakeMonitor) StopMonitoring(_ context.Context, spotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	delete(m.active, spotID)

	return nil
}

// holdNextActiveQuery makes the next ActiveRegionIDs call signal entered and
// then block until release is called. One-shot; later calls pass through.
func (m *fakeMonitor) holdNextActiveQuery() (entered <-chan struct{}, release func()) {
	enteredCh := make(chan struct{})
	gateCh := make(chan struct{})
	m.mu.Lock()
	m.entered = enteredCh
	m.gate = gateCh
	m.mu.Unlock()

	return enteredCh, func() { close(gateCh) }
}

func (m *fakeMonitor) ActiveRegionIDs(_ context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	entered, gate := m.entered, m.gate
	m.entered, m.gate = nil, nil
	m.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	out := make(map[string]struct{}, len(m.active))
	for id := range m.active {
		out[id] = struct{}{}
	}

	return out, nil
}

func (m *fakeMonitor) MonitoringAvailable(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.available
}

func (m *fakeMonitor) callCounts() (started, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.startCalls, m.stopCalls
}

func (m *fakeMonitor) activeIDs() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.active))
	for id := range m.active {
		out[id] = struct{}{}
	}

	return out
}

// fakePermissions implements PermissionService with scripted responses.
type fakePermissions struct {
	mu              sync.Mutex
	current         entity.AuthorizationState
	whileInUseCalls int
	alwaysCalls     int
	requestErr      error
	events          chan entity.AuthorizationState
}

func newFakePermissions(state entity.AuthorizationState) *fakePermissions {
	return &fakePermissions{
		current: state,
		events:  make(chan entity.AuthorizationState, 8),
	}
}

func (p *fakePermissions) CurrentAuthorization(_ context.Context) entity.AuthorizationState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

func (p *fakePermissions) RequestWhileInUse(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.whileInUseCalls++

	return p.requestErr
}

func (p *fakePermissions) RequestAlways(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alwaysCalls++

	return p.requestErr
}

func (p *fakePermissions) AuthorizationEvents() <-chan entity.AuthorizationState {
	return p.events
}

// fakeLocation serves a fixed fix.
type fakeLocation struct {
	mu       sync.Mutex
	point    orb.Point
	has      bool
	fixCalls int
}

func (l *fakeLocation) LastKnownLocation(_ context.Context) (orb.Point, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.point, l.has
}

func (l *fakeLocation) RequestFix(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fixCalls++

	return nil
}

type scheduledNotification struct {
	spotID string
	title  string
	body   string
	data   map[string]string
}

// fakeNotifier records scheduled notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	scheduled []scheduledNotification
	err       error
}

func (n *fakeNotifier) Schedule(_ context.Context, spotID, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.scheduled = append(n.scheduled, scheduledNotification{spotID: spotID, title: title, body: body, data: data})

	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.scheduled)
}

// fakeAlerts records published in-app alert events.
type fakeAlerts struct {
	mu        sync.Mutex
	published []*service.GeofenceAlertEvent
}

func (a *fakeAlerts) PublishAlert(_ context.Context, event *service.GeofenceAlertEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.published = append(a.published, event)

	return nil
}

func (a *fakeAlerts) Close() error { return nil }

func (a *fakeAlerts) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.published)
}

var errLedgerDown = errors.New("ledger unavailable")
