package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/google/uuid"
)

type fakeAvail struct {
	online     bool
	setErr     error
	reconciled int
	ensured    int
	onChange   func(ctx context.Context, online bool)
}

func (f *fakeAvail) Reconcile(context.Context) (models.ReconcileResult, error) {
	f.reconciled++
	return models.ReconcileResult{Intent: f.online}, nil
}

func (f *fakeAvail) SetOnline(ctx context.Context, target bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.online = target
	return nil
}

func (f *fakeAvail) EnsureOnline(context.Context) error {
	f.ensured++
	f.online = true
	return nil
}

func (f *fakeAvail) IsOnline() bool        { return f.online }
func (f *fakeAvail) Toggle() models.Toggle { return models.Toggle{} }
func (f *fakeAvail) OnChange(fn func(ctx context.Context, online bool)) {
	f.onChange = fn
}

type fakeOffers struct {
	polls     int
	announced []models.OfferInserted
	withdrawn []uuid.UUID
	dismissed int
	closed    bool
}

func (f *fakeOffers) Announce(_ context.Context, ev models.OfferInserted) (bool, error) {
	f.announced = append(f.announced, ev)
	return true, nil
}
func (f *fakeOffers) Poll(context.Context) (bool, error) { f.polls++; return false, nil }
func (f *fakeOffers) Accept(context.Context) (*models.Ride, error) {
	return nil, types.ErrNoOffer
}
func (f *fakeOffers) Decline(context.Context) error { return nil }
func (f *fakeOffers) Dismiss(context.Context) bool  { f.dismissed++; return true }
func (f *fakeOffers) Withdraw(_ context.Context, id uuid.UUID) bool {
	f.withdrawn = append(f.withdrawn, id)
	return true
}
func (f *fakeOffers) Snapshot() models.OfferSnapshot {
	return models.OfferSnapshot{State: types.OfferIdle}
}
func (f *fakeOffers) Close() { f.closed = true }

type fakeRides struct {
	active    *models.Ride
	activated []models.Ride
	remote    []uuid.UUID
	onEnded   func(ctx context.Context, ride models.Ride)
	closed    bool
}

func (f *fakeRides) Activate(_ context.Context, r models.Ride) error {
	f.activated = append(f.activated, r)
	f.active = &r
	return nil
}
func (f *fakeRides) HasActiveRide() bool                 { return f.active != nil }
func (f *fakeRides) Arrive(context.Context) error        { return nil }
func (f *fakeRides) Start(context.Context, string) error { return nil }
func (f *fakeRides) ChargeNoShow(context.Context) error  { return nil }
func (f *fakeRides) Cancel(context.Context, types.CancelReason) error {
	return nil
}
func (f *fakeRides) Complete(context.Context, float64) (*models.Completion, error) {
	return &models.Completion{}, nil
}
func (f *fakeRides) OnStatusChanged(_ context.Context, id uuid.UUID, _ types.RideStatus) bool {
	if f.active == nil || f.active.ID != id {
		return false
	}
	f.remote = append(f.remote, id)
	f.active = nil
	return true
}
func (f *fakeRides) Snapshot() models.RideSnapshot { return models.RideSnapshot{Ride: f.active} }
func (f *fakeRides) OnEnded(fn func(ctx context.Context, ride models.Ride)) {
	f.onEnded = fn
}
func (f *fakeRides) Close() { f.closed = true }

type fakeGuard struct {
	triggers atomic.Int32
	running  atomic.Bool
	stopped  chan struct{}
}

func (f *fakeGuard) Trigger() { f.triggers.Add(1) }
func (f *fakeGuard) Run(ctx context.Context) {
	f.running.Store(true)
	<-ctx.Done()
	close(f.stopped)
}

type fakeProfiles struct {
	balance float64
	err     error
	gets    int
}

func (f *fakeProfiles) Get(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Profile{DriverID: id, Balance: f.balance}, nil
}

type fakeRideRepo struct {
	active *models.Ride
}

func (f *fakeRideRepo) ActiveForDriver(context.Context, uuid.UUID) (*models.Ride, error) {
	if f.active == nil {
		return nil, types.ErrRideNotFound
	}
	return f.active, nil
}

type fakeIntent struct {
	driverID uuid.UUID
	cleared  int
}

func (f *fakeIntent) Clear(context.Context) error {
	f.cleared++
	return nil
}

func (f *fakeIntent) SetDriver(_ context.Context, id uuid.UUID) error {
	f.driverID = id
	return nil
}

type fakeOut struct {
	mu   sync.Mutex
	msgs []models.WebSocketMessage
}

func (f *fakeOut) Broadcast(m models.WebSocketMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
}

func (f *fakeOut) count(kind types.NoticeKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Type == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	driverID uuid.UUID
	avail    *fakeAvail
	offers   *fakeOffers
	rides    *fakeRides
	guard    *fakeGuard
	profiles *fakeProfiles
	rideRepo *fakeRideRepo
	intent   *fakeIntent
	out      *fakeOut
	engine   *Engine
}

func newFixture() *fixture {
	f := &fixture{
		driverID: uuid.New(),
		avail:    &fakeAvail{},
		offers:   &fakeOffers{},
		rides:    &fakeRides{},
		guard:    &fakeGuard{stopped: make(chan struct{})},
		profiles: &fakeProfiles{balance: 1500},
		rideRepo: &fakeRideRepo{},
		intent:   &fakeIntent{},
		out:      &fakeOut{},
	}
	f.engine = New(f.driverID, f.profiles, f.rideRepo, f.intent, f.out, logger.Discard())
	f.engine.Attach(f.avail, f.offers, f.rides, f.guard)
	return f
}

func TestStartResumesActiveRide(t *testing.T) {
	f := newFixture()
	ride := &models.Ride{ID: uuid.New(), Status: types.RideArrived, FareEstimate: 800}
	f.rideRepo.active = ride

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.engine.Close()

	if f.intent.driverID != f.driverID {
		t.Fatalf("driver id not stored")
	}
	if f.avail.reconciled != 1 {
		t.Fatalf("reconciled %d times", f.avail.reconciled)
	}
	if f.engine.Balance() != 1500 {
		t.Fatalf("balance = %v", f.engine.Balance())
	}
	if len(f.rides.activated) != 1 || f.rides.activated[0].ID != ride.ID {
		t.Fatalf("ride not resumed: %+v", f.rides.activated)
	}
	if f.avail.ensured != 1 || !f.avail.online {
		t.Fatalf("driver on a ride must be online")
	}
	if f.guard.triggers.Load() == 0 {
		t.Fatalf("guard not triggered")
	}
	if f.out.count(types.NoticeSnapshot) == 0 {
		t.Fatalf("no snapshot published")
	}
}

func TestStartPollsOffersWhenOnline(t *testing.T) {
	f := newFixture()
	f.avail.online = true

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.engine.Close()

	if f.offers.polls != 1 {
		t.Fatalf("polls = %d, want 1", f.offers.polls)
	}
	if f.avail.ensured != 0 {
		t.Fatalf("EnsureOnline called without an active ride")
	}
}

func TestStartToleratesProfileFailure(t *testing.T) {
	f := newFixture()
	f.profiles.err = errors.New("db down")

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.engine.Close()

	if f.engine.Balance() != 0 {
		t.Fatalf("balance = %v", f.engine.Balance())
	}
}

func TestCloseStopsGuard(t *testing.T) {
	f := newFixture()
	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.engine.Close()

	select {
	case <-f.guard.stopped:
	default:
		t.Fatalf("guard still running after Close")
	}
	if !f.offers.closed || !f.rides.closed {
		t.Fatalf("controllers not closed")
	}
}

func TestOfferIgnoredWhileOffline(t *testing.T) {
	f := newFixture()
	ev := models.OfferInserted{DriverID: f.driverID, RideID: uuid.New()}

	if err := f.engine.OfferInserted(context.Background(), ev); err != nil {
		t.Fatalf("OfferInserted: %v", err)
	}
	if len(f.offers.announced) != 0 {
		t.Fatalf("offer announced while offline")
	}

	f.avail.online = true
	if err := f.engine.OfferInserted(context.Background(), ev); err != nil {
		t.Fatalf("OfferInserted: %v", err)
	}
	if len(f.offers.announced) != 1 {
		t.Fatalf("offer not announced while online")
	}

	other := models.OfferInserted{DriverID: uuid.New(), RideID: uuid.New()}
	_ = f.engine.OfferInserted(context.Background(), other)
	if len(f.offers.announced) != 1 {
		t.Fatalf("offer for another driver announced")
	}
}

func TestRideCancelledRemotely(t *testing.T) {
	f := newFixture()
	ride := models.Ride{ID: uuid.New(), Status: types.RideAccepted}
	f.rides.active = &ride

	f.engine.RideStatusChanged(context.Background(), models.RideStatusChanged{RideID: ride.ID, Status: types.RideInProgress})
	if len(f.rides.remote) != 0 {
		t.Fatalf("non-cancel status handled")
	}

	f.engine.RideStatusChanged(context.Background(), models.RideStatusChanged{RideID: ride.ID, Status: types.RideCancelled})
	if len(f.rides.remote) != 1 {
		t.Fatalf("active ride not torn down")
	}
	if len(f.offers.withdrawn) != 0 {
		t.Fatalf("offer withdrawn although the ride handled the event")
	}

	offered := uuid.New()
	f.engine.RideStatusChanged(context.Background(), models.RideStatusChanged{RideID: offered, Status: types.RideCancelled})
	if len(f.offers.withdrawn) != 1 || f.offers.withdrawn[0] != offered {
		t.Fatalf("offer not withdrawn: %v", f.offers.withdrawn)
	}
}

func TestBalanceChanged(t *testing.T) {
	f := newFixture()

	f.engine.BalanceChanged(context.Background(), models.BalanceChanged{DriverID: uuid.New(), Balance: -5000})
	if f.engine.Balance() != 0 {
		t.Fatalf("balance of another driver applied")
	}

	f.engine.BalanceChanged(context.Background(), models.BalanceChanged{DriverID: f.driverID, Balance: -2500})
	if f.engine.Balance() != -2500 {
		t.Fatalf("balance = %v", f.engine.Balance())
	}
	if f.guard.triggers.Load() != 1 {
		t.Fatalf("guard triggers = %d", f.guard.triggers.Load())
	}
}

func TestHandleEventRoutes(t *testing.T) {
	f := newFixture()
	f.avail.online = true

	err := f.engine.HandleEvent(context.Background(), models.Event{
		Type:           types.EventBalanceChanged,
		BalanceChanged: &models.BalanceChanged{DriverID: f.driverID, Balance: 300},
	})
	if err != nil || f.engine.Balance() != 300 {
		t.Fatalf("balance event: err=%v balance=%v", err, f.engine.Balance())
	}

	err = f.engine.HandleEvent(context.Background(), models.Event{
		Type:          types.EventOfferInserted,
		OfferInserted: &models.OfferInserted{DriverID: f.driverID, RideID: uuid.New()},
	})
	if err != nil || len(f.offers.announced) != 1 {
		t.Fatalf("offer event: err=%v announced=%d", err, len(f.offers.announced))
	}

	if err := f.engine.HandleEvent(context.Background(), models.Event{Type: "UNKNOWN"}); err == nil {
		t.Fatalf("unknown event accepted")
	}
	if err := f.engine.HandleEvent(context.Background(), models.Event{Type: types.EventRideStatusChanged}); err == nil {
		t.Fatalf("event without payload accepted")
	}
}

func TestRideEndedRefreshesAndPolls(t *testing.T) {
	f := newFixture()
	f.avail.online = true
	f.profiles.balance = 2300

	f.rides.onEnded(context.Background(), models.Ride{ID: uuid.New()})

	if f.engine.Balance() != 2300 {
		t.Fatalf("balance = %v", f.engine.Balance())
	}
	if f.offers.polls != 1 {
		t.Fatalf("polls = %d", f.offers.polls)
	}
	if f.guard.triggers.Load() == 0 {
		t.Fatalf("guard not triggered")
	}
}

func TestAvailabilityChangeTriggersGuard(t *testing.T) {
	f := newFixture()
	f.avail.onChange(context.Background(), true)
	if f.guard.triggers.Load() != 1 {
		t.Fatalf("guard triggers = %d", f.guard.triggers.Load())
	}
}

func TestGoingOfflineDismissesOffer(t *testing.T) {
	f := newFixture()

	f.avail.onChange(context.Background(), true)
	if f.offers.dismissed != 0 {
		t.Fatalf("offer dismissed on going online")
	}

	f.avail.onChange(context.Background(), false)
	if f.offers.dismissed != 1 {
		t.Fatalf("dismissed = %d after going offline", f.offers.dismissed)
	}
}

func TestAcceptOfferRetriggersGuard(t *testing.T) {
	f := newFixture()
	_, _ = f.engine.AcceptOffer(context.Background())
	if f.guard.triggers.Load() != 1 {
		t.Fatalf("guard triggers = %d after accept", f.guard.triggers.Load())
	}
}

func TestSetOnline(t *testing.T) {
	f := newFixture()

	if err := f.engine.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	if f.offers.polls != 1 {
		t.Fatalf("polls = %d after going online", f.offers.polls)
	}

	f.avail.setErr = types.ErrLowBalance
	if err := f.engine.SetOnline(context.Background(), true); !errors.Is(err, types.ErrLowBalance) {
		t.Fatalf("err = %v", err)
	}
	if f.offers.polls != 1 {
		t.Fatalf("polled after failed toggle")
	}
	if f.out.count(types.NoticeSnapshot) != 2 {
		t.Fatalf("snapshots = %d, want one per command", f.out.count(types.NoticeSnapshot))
	}
}

func TestNotifyForwardsNotice(t *testing.T) {
	f := newFixture()
	f.engine.Notify(context.Background(), models.Notice{Kind: types.NoticeEarned, Blocking: true})
	if f.out.count(types.NoticeEarned) != 1 {
		t.Fatalf("notice not forwarded")
	}
}

func TestSignOut(t *testing.T) {
	f := newFixture()
	f.avail.online = true

	if err := f.engine.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if f.avail.online {
		t.Fatalf("driver still online after sign-out")
	}
	if f.intent.cleared != 1 {
		t.Fatalf("intent cleared %d times", f.intent.cleared)
	}
	if f.offers.dismissed == 0 {
		t.Fatalf("offer not dismissed")
	}
	if f.out.count(types.NoticeSnapshot) == 0 {
		t.Fatalf("no snapshot published")
	}
}

func TestSignOutRefusedDuringRide(t *testing.T) {
	f := newFixture()
	f.avail.online = true
	f.rides.active = &models.Ride{ID: uuid.New(), Status: types.RideInProgress}

	if err := f.engine.SignOut(context.Background()); !errors.Is(err, types.ErrActiveRideExists) {
		t.Fatalf("err = %v", err)
	}
	if !f.avail.online || f.intent.cleared != 0 {
		t.Fatalf("session touched during a ride")
	}
}
