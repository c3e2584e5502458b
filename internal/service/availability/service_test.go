package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/google/uuid"
)

type fakeIntent struct {
	intent models.Intent
	err    error
}

func (f *fakeIntent) Load(context.Context) (models.Intent, error) { return f.intent, nil }
func (f *fakeIntent) SetOnline(_ context.Context, online bool) error {
	if f.err != nil {
		return f.err
	}
	f.intent.Online = online
	return nil
}

type fakeTracker struct {
	running bool
	starts  int
	stops   int
}

func (f *fakeTracker) Start(context.Context) error { f.starts++; f.running = true; return nil }
func (f *fakeTracker) Stop(context.Context) error  { f.stops++; f.running = false; return nil }
func (f *fakeTracker) IsRunning() bool             { return f.running }

type fakeLocation struct {
	enabled  bool
	current  *models.LocationSample
	last     *models.LocationSample
	timeouts []time.Duration
}

func (f *fakeLocation) ServicesEnabled(context.Context) bool { return f.enabled }
func (f *fakeLocation) Current(_ context.Context, timeout time.Duration) (models.LocationSample, error) {
	f.timeouts = append(f.timeouts, timeout)
	if f.current == nil {
		return models.LocationSample{}, context.DeadlineExceeded
	}
	return *f.current, nil
}
func (f *fakeLocation) LastKnown(context.Context) (models.LocationSample, bool) {
	if f.last == nil {
		return models.LocationSample{}, false
	}
	return *f.last, true
}

type fakeIngest struct {
	batches []models.LocationBatch
	err     error
}

func (f *fakeIngest) Send(_ context.Context, b models.LocationBatch) error {
	f.batches = append(f.batches, b)
	return f.err
}

type fakeDispatch struct {
	calls int
	err   error
}

func (f *fakeDispatch) GoOffline(context.Context, uuid.UUID) error { f.calls++; return f.err }

type fakeProfiles struct {
	online *bool
	err    error
}

func (f *fakeProfiles) SetOnline(_ context.Context, _ uuid.UUID, online bool) error {
	if f.err != nil {
		return f.err
	}
	f.online = &online
	return nil
}

type fakeBalance float64

func (b fakeBalance) Balance() float64 { return float64(b) }

type fakeNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (f *fakeNotifier) Notify(_ context.Context, n models.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

type fixture struct {
	svc      *Service
	intent   *fakeIntent
	tracker  *fakeTracker
	location *fakeLocation
	ingest   *fakeIngest
	dispatch *fakeDispatch
	profiles *fakeProfiles
	notifier *fakeNotifier
}

func newFixture(balance float64) *fixture {
	here := models.LocationSample{Lat: 36.75, Lng: 3.06, TimestampMs: 1}
	driverID := uuid.New()
	f := &fixture{
		intent:   &fakeIntent{intent: models.Intent{DriverID: driverID}},
		tracker:  &fakeTracker{},
		location: &fakeLocation{enabled: true, current: &here},
		ingest:   &fakeIngest{},
		dispatch: &fakeDispatch{},
		profiles: &fakeProfiles{},
		notifier: &fakeNotifier{},
	}
	f.svc = New(driverID, f.intent, f.tracker, f.location, f.ingest, f.dispatch, f.profiles,
		fakeBalance(balance), f.notifier,
		Config{DebtCeiling: -2000, FreshFixTimeout: 5 * time.Second}, logger.Discard())
	return f
}

func TestDecide(t *testing.T) {
	tests := []struct {
		intent, running bool
		want            types.ReconcileAction
	}{
		{true, false, types.ReconcileStartTracking},
		{false, true, types.ReconcileStopTracking},
		{true, true, types.ReconcileNone},
		{false, false, types.ReconcileNone},
	}
	for _, tt := range tests {
		if got := Decide(tt.intent, tt.running); got != tt.want {
			t.Fatalf("Decide(%v, %v) = %s, want %s", tt.intent, tt.running, got, tt.want)
		}
	}
}

func TestReconcile_AllCombinations(t *testing.T) {
	tests := []struct {
		name        string
		intent      bool
		running     bool
		wantRunning bool
		wantOnline  bool
		wantStarts  int
		wantStops   int
	}{
		{"zombie restart", true, false, true, true, 1, 0},
		{"orphan tracker", false, true, false, false, 0, 1},
		{"consistent online", true, true, true, true, 0, 0},
		{"consistent offline", false, false, false, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(0)
			f.intent.intent.Online = tt.intent
			f.tracker.running = tt.running

			res, err := f.svc.Reconcile(context.Background())
			if err != nil {
				t.Fatalf("reconcile: %v", err)
			}
			if f.tracker.running != tt.wantRunning {
				t.Fatalf("tracker running = %v, want %v", f.tracker.running, tt.wantRunning)
			}
			if f.svc.IsOnline() != tt.wantOnline {
				t.Fatalf("online = %v, want %v", f.svc.IsOnline(), tt.wantOnline)
			}
			if f.tracker.starts != tt.wantStarts || f.tracker.stops != tt.wantStops {
				t.Fatalf("starts/stops = %d/%d", f.tracker.starts, f.tracker.stops)
			}
			if res.Intent != tt.intent || res.WasRunning != tt.running {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestSetOnline_LowBalanceRejected(t *testing.T) {
	f := newFixture(-2500)

	err := f.svc.SetOnline(context.Background(), true)
	if !errors.Is(err, types.ErrLowBalance) {
		t.Fatalf("expected ErrLowBalance, got %v", err)
	}
	if f.svc.IsOnline() || f.tracker.running || f.intent.intent.Online {
		t.Fatalf("no state may change on low balance")
	}
	if len(f.notifier.notices) != 1 || f.notifier.notices[0].Kind != types.NoticeLowBalance {
		t.Fatalf("expected a low balance notice, got %+v", f.notifier.notices)
	}
}

func TestSetOnline_AtCeilingAllowed(t *testing.T) {
	f := newFixture(-2000)
	if err := f.svc.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("balance equal to the ceiling must be allowed: %v", err)
	}
}

func TestSetOnline_Success(t *testing.T) {
	f := newFixture(100)

	var changes []bool
	f.svc.OnChange(func(_ context.Context, online bool) { changes = append(changes, online) })

	if err := f.svc.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("set online: %v", err)
	}

	if !f.svc.IsOnline() || !f.intent.intent.Online || !f.tracker.running {
		t.Fatalf("online state incomplete")
	}
	if f.profiles.online == nil || !*f.profiles.online {
		t.Fatalf("profile not marked online")
	}
	if len(f.ingest.batches) != 1 || len(f.ingest.batches[0].Locations) != 1 {
		t.Fatalf("expected a one-sample initial push, got %+v", f.ingest.batches)
	}
	if f.location.timeouts[0] != 5*time.Second {
		t.Fatalf("fresh fix timeout = %s", f.location.timeouts[0])
	}
	if tg := f.svc.Toggle(); tg.State != types.MutationConfirmed || !tg.Target {
		t.Fatalf("toggle = %+v", tg)
	}
	if len(changes) != 1 || !changes[0] {
		t.Fatalf("change hook = %v", changes)
	}
}

func TestSetOnline_FallsBackToLastKnown(t *testing.T) {
	f := newFixture(0)
	last := models.LocationSample{Lat: 1, Lng: 2, TimestampMs: 7}
	f.location.current = nil
	f.location.last = &last

	if err := f.svc.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	if f.ingest.batches[0].Locations[0].TimestampMs != 7 {
		t.Fatalf("last known fix not used")
	}
}

func TestSetOnline_InitialPushFailureIsNotFatal(t *testing.T) {
	f := newFixture(0)
	f.ingest.err = errors.New("ingest down")

	if err := f.svc.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("initial push failure must not fail the toggle: %v", err)
	}
	if !f.svc.IsOnline() {
		t.Fatalf("driver must be online")
	}
}

func TestSetOnline_LocationDisabledRollsBack(t *testing.T) {
	f := newFixture(0)
	f.location.enabled = false

	err := f.svc.SetOnline(context.Background(), true)
	if !errors.Is(err, types.ErrLocationServicesDisabled) {
		t.Fatalf("expected ErrLocationServicesDisabled, got %v", err)
	}

	if f.svc.IsOnline() {
		t.Fatalf("online flag must be rolled back")
	}
	if f.intent.intent.Online || f.tracker.running {
		t.Fatalf("intent and tracker must be restored to offline")
	}
	if tg := f.svc.Toggle(); tg.State != types.MutationRolledBack {
		t.Fatalf("toggle = %+v", tg)
	}

	n := f.notifier.notices
	if len(n) != 1 || n[0].Kind != types.NoticeLocationError || !n[0].Blocking {
		t.Fatalf("expected blocking location notice, got %+v", n)
	}
	if f.profiles.online != nil {
		t.Fatalf("profile must not be touched")
	}
}

func TestSetOnline_NoFixAnywhere(t *testing.T) {
	f := newFixture(0)
	f.location.current = nil

	err := f.svc.SetOnline(context.Background(), true)
	if !errors.Is(err, types.ErrNoLocationFix) || !errors.Is(err, types.ErrLocationUnavailable) {
		t.Fatalf("expected ErrNoLocationFix, got %v", err)
	}
	if f.svc.IsOnline() {
		t.Fatalf("online flag must be rolled back")
	}
}

func TestSetOnline_ProfileFailureIsConnectionError(t *testing.T) {
	f := newFixture(0)
	f.profiles.err = errors.New("db down")

	if err := f.svc.SetOnline(context.Background(), true); err == nil {
		t.Fatalf("expected error")
	}
	if f.svc.IsOnline() {
		t.Fatalf("online flag must be rolled back")
	}
	if n := f.notifier.notices; len(n) != 1 || n[0].Kind != types.NoticeConnectionError {
		t.Fatalf("expected connection notice, got %+v", n)
	}
}

func TestSetOffline_DispatchFailureIsBestEffort(t *testing.T) {
	f := newFixture(0)
	_ = f.svc.SetOnline(context.Background(), true)
	f.dispatch.err = errors.New("backend down")

	if err := f.svc.SetOnline(context.Background(), false); err != nil {
		t.Fatalf("go-offline failure must be ignored: %v", err)
	}
	if f.svc.IsOnline() || f.tracker.running || f.intent.intent.Online {
		t.Fatalf("driver must be fully offline")
	}
	if f.dispatch.calls != 1 {
		t.Fatalf("dispatch calls = %d", f.dispatch.calls)
	}
	if f.profiles.online == nil || *f.profiles.online {
		t.Fatalf("profile must be marked offline")
	}
}

func TestForceOffline_NoRollback(t *testing.T) {
	f := newFixture(0)
	_ = f.svc.SetOnline(context.Background(), true)
	f.profiles.err = errors.New("db down")

	f.svc.ForceOffline(context.Background())

	if f.svc.IsOnline() || f.tracker.running || f.intent.intent.Online {
		t.Fatalf("forced offline must stick despite failures")
	}
	if len(f.notifier.notices) != 0 {
		t.Fatalf("force offline emits no rollback notice")
	}
}

func TestEnsureOnline(t *testing.T) {
	f := newFixture(-5000)

	if err := f.svc.EnsureOnline(context.Background()); err != nil {
		t.Fatalf("ensure online: %v", err)
	}
	if !f.svc.IsOnline() || !f.tracker.running || !f.intent.intent.Online {
		t.Fatalf("resumed session must be online and tracking")
	}
}
