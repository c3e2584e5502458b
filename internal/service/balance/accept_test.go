package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/internal/service/offer"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/google/uuid"
)

// driverState backs both the guard session and the offer controller.
type driverState struct {
	mu      sync.Mutex
	online  bool
	balance float64
	active  bool
}

func (d *driverState) IsOnline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

func (d *driverState) Balance() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance
}

func (d *driverState) HasActiveRide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *driverState) Activate(context.Context, models.Ride) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = true
	return nil
}

func (d *driverState) ForceOffline(context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online = false
}

type rideStore struct{ ride models.Ride }

func (r rideStore) Get(context.Context, uuid.UUID) (*models.Ride, error) {
	cp := r.ride
	return &cp, nil
}

type noOffers struct{}

func (noOffers) PendingForDriver(context.Context, uuid.UUID, time.Time) (*models.RideOffer, error) {
	return nil, nil
}
func (noOffers) Decline(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type dispatchFunc func()

func (f dispatchFunc) Accept(context.Context, uuid.UUID, uuid.UUID) error {
	f()
	return nil
}

func TestGuardDuringAccept_KeepsDriverOnline(t *testing.T) {
	ctx := context.Background()
	state := &driverState{online: true, balance: -2500}
	rideID := uuid.New()
	rides := rideStore{ride: models.Ride{ID: rideID, Status: types.RidePending, FareEstimate: 800}}

	var g *Guard
	var forcedMidAccept bool
	dispatch := dispatchFunc(func() { forcedMidAccept = g.Check(ctx) })

	ctrl := offer.NewController(uuid.New(), rides, noOffers{}, dispatch, state, state, &fakeNotifier{}, time.Minute, logger.Discard())
	g = NewGuard(state, ctrl, state, &fakeNotifier{}, -2000, 0, logger.Discard())

	if shown, err := ctrl.Announce(ctx, models.OfferInserted{RideID: rideID}); err != nil || !shown {
		t.Fatalf("announce: shown=%v err=%v", shown, err)
	}
	if _, err := ctrl.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if forcedMidAccept || !state.IsOnline() || !state.HasActiveRide() {
		t.Fatalf("after accept: forced=%v online=%v active=%v", forcedMidAccept, state.IsOnline(), state.HasActiveRide())
	}

	// once the ride is active the guard still leaves the driver alone
	if g.Check(ctx) {
		t.Fatalf("driver on a ride forced offline")
	}
}

func TestForcedOfflineDriverCannotAccept(t *testing.T) {
	ctx := context.Background()
	state := &driverState{online: true, balance: -2500}
	rideID := uuid.New()
	rides := rideStore{ride: models.Ride{ID: rideID, Status: types.RidePending, FareEstimate: 800}}

	var claimed bool
	dispatch := dispatchFunc(func() { claimed = true })
	ctrl := offer.NewController(uuid.New(), rides, noOffers{}, dispatch, state, state, &fakeNotifier{}, time.Minute, logger.Discard())
	g := NewGuard(state, ctrl, state, &fakeNotifier{}, -2000, 0, logger.Discard())

	if shown, err := ctrl.Announce(ctx, models.OfferInserted{RideID: rideID}); err != nil || !shown {
		t.Fatalf("announce: shown=%v err=%v", shown, err)
	}
	if !g.Check(ctx) {
		t.Fatalf("idle driver in debt must be forced offline")
	}

	if _, err := ctrl.Accept(ctx); !errors.Is(err, types.ErrDriverOffline) {
		t.Fatalf("expected ErrDriverOffline, got %v", err)
	}
	if claimed || state.HasActiveRide() {
		t.Fatalf("forced offline driver claimed the ride")
	}
}
