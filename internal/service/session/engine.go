package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// Engine owns the driver session and routes UI commands and realtime events
// to the controllers. It also implements the notifier and balance source the
// controllers depend on.
type Engine struct {
	driverID uuid.UUID
	profiles ProfileRepo
	rideRepo RideRepo
	intent   IntentStore
	out      Broadcaster
	l        logger.Logger

	avail  Availability
	offers Offers
	rides  Rides
	guard  Guard

	mu      sync.RWMutex
	balance float64
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func New(driverID uuid.UUID, profiles ProfileRepo, rideRepo RideRepo, intent IntentStore, out Broadcaster, l logger.Logger) *Engine {
	return &Engine{
		driverID: driverID,
		profiles: profiles,
		rideRepo: rideRepo,
		intent:   intent,
		out:      out,
		l:        l,
	}
}

// Attach binds the controllers built on top of the engine. It must be called
// once before Start.
func (e *Engine) Attach(avail Availability, offers Offers, rides Rides, guard Guard) {
	e.avail = avail
	e.offers = offers
	e.rides = rides
	e.guard = guard

	avail.OnChange(func(ctx context.Context, online bool) {
		if !online {
			// an offline driver keeps no offer on screen
			e.offers.Dismiss(ctx)
		}
		e.guard.Trigger()
	})
	rides.OnEnded(e.rideEnded)
}

func (e *Engine) DriverID() uuid.UUID {
	return e.driverID
}

func (e *Engine) Balance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance
}

func (e *Engine) setBalance(b float64) {
	e.mu.Lock()
	e.balance = b
	e.mu.Unlock()
}

func (e *Engine) IsOnline() bool {
	return e.avail.IsOnline()
}

func (e *Engine) HasActiveRide() bool {
	return e.rides.HasActiveRide()
}

// Start restores the session: the tracker is reconciled with the persisted
// intent, the balance is loaded, an unfinished ride is resumed and pending
// offers are picked up. The balance guard runs until Close.
func (e *Engine) Start(ctx context.Context) error {
	const op = "Engine.Start"
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionSessionStart), e.driverID.String())

	if err := e.intent.SetDriver(ctx, e.driverID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: store driver id: %w", op, err))
	}

	if _, err := e.avail.Reconcile(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := e.RefreshBalance(ctx); err != nil {
		e.l.Error(ctx, "failed to load balance", err)
	}

	if err := e.resumeRide(ctx); err != nil {
		e.l.Error(ctx, "failed to resume active ride", err)
	}

	if e.avail.IsOnline() {
		if _, err := e.offers.Poll(ctx); err != nil {
			e.l.Error(ctx, "failed to poll pending offers", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.guard.Run(runCtx)
	}()
	e.guard.Trigger()

	e.l.Info(ctx, "driver session started", "online", e.avail.IsOnline(), "balance", e.Balance(), "active_ride", e.rides.HasActiveRide())
	e.publish()
	return nil
}

func (e *Engine) resumeRide(ctx context.Context) error {
	ride, err := e.rideRepo.ActiveForDriver(ctx, e.driverID)
	if err != nil {
		if errors.Is(err, types.ErrRideNotFound) {
			return nil
		}
		return err
	}
	if ride == nil {
		return nil
	}

	if err := e.rides.Activate(ctx, *ride); err != nil {
		return err
	}
	e.l.Info(wrap.WithRideID(ctx, ride.ID.String()), "resumed active ride", "status", ride.Status)

	// a driver on a ride is online and tracked
	return e.avail.EnsureOnline(ctx)
}

// Close stops the background work of the session.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.offers.Close()
	e.rides.Close()
}

// RefreshBalance reloads the balance from the profile and re-checks the
// debt ceiling.
func (e *Engine) RefreshBalance(ctx context.Context) error {
	const op = "Engine.RefreshBalance"
	ctx = wrap.WithAction(ctx, types.ActionBalanceRefresh)

	p, err := e.profiles.Get(ctx, e.driverID)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	e.setBalance(p.Balance)
	e.guard.Trigger()
	return nil
}

// Snapshot returns the whole session.
func (e *Engine) Snapshot() models.Snapshot {
	return models.Snapshot{
		Session: models.DriverSession{
			DriverID: e.driverID,
			IsOnline: e.avail.IsOnline(),
			Balance:  e.Balance(),
			Toggle:   e.avail.Toggle(),
		},
		Offer: e.offers.Snapshot(),
		Ride:  e.rides.Snapshot(),
	}
}

func (e *Engine) publish() {
	e.out.Broadcast(models.WebSocketMessage{Type: types.NoticeSnapshot, Data: e.Snapshot()})
}

// Notify logs n and forwards it to the UI.
func (e *Engine) Notify(ctx context.Context, n models.Notice) {
	ctx = wrap.WithAction(ctx, types.ActionNoticeBroadcast)
	e.l.Debug(ctx, "notice", "kind", n.Kind, "blocking", n.Blocking, "title", n.Title)
	e.out.Broadcast(models.WebSocketMessage{Type: n.Kind, Data: n})
}

func (e *Engine) rideEnded(ctx context.Context, ride models.Ride) {
	if err := e.RefreshBalance(ctx); err != nil {
		e.l.Error(ctx, "failed to refresh balance after ride", err)
	}
	if e.avail.IsOnline() {
		if _, err := e.offers.Poll(ctx); err != nil {
			e.l.Error(ctx, "failed to poll offers after ride", err)
		}
	}
}
