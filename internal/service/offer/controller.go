package offer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/google/uuid"
)

// Controller holds at most one incoming offer and runs its countdown.
type Controller struct {
	driverID  uuid.UUID
	rides     RideRepo
	offers    OfferRepo
	dispatch  Dispatch
	lifecycle RideLifecycle
	presence  Presence
	notifier  Notifier
	countdown time.Duration
	l         logger.Logger

	now      func() time.Time
	schedule ScheduleFunc

	mu        sync.Mutex
	state     types.OfferState
	offer     *models.RideOffer
	ride      *models.Ride
	deadline  time.Time
	timer     Timer
	seq       uint64
	accepting bool
	// set while a caller holds accepts off, see Hold
	held bool
}

func NewController(
	driverID uuid.UUID,
	rides RideRepo,
	offers OfferRepo,
	dispatch Dispatch,
	lifecycle RideLifecycle,
	presence Presence,
	notifier Notifier,
	countdown time.Duration,
	l logger.Logger,
) *Controller {
	return &Controller{
		driverID:  driverID,
		rides:     rides,
		offers:    offers,
		dispatch:  dispatch,
		lifecycle: lifecycle,
		presence:  presence,
		notifier:  notifier,
		countdown: countdown,
		l:         l,
		now:       time.Now,
		schedule:  afterFunc,
		state:     types.OfferIdle,
	}
}

// WithScheduler replaces the clock and timer source. Used by tests.
func (c *Controller) WithScheduler(now func() time.Time, schedule ScheduleFunc) *Controller {
	c.now = now
	c.schedule = schedule
	return c
}

// Announce is the single entry point for offers, whether pushed or polled.
// It reports whether the offer was shown. Offers are ignored while another
// offer is shown, while a ride is active, after they expired, or when the
// ride is no longer pending.
func (c *Controller) Announce(ctx context.Context, ev models.OfferInserted) (bool, error) {
	const op = "Offer.Announce"
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionOfferAnnounce), ev.RideID.String())

	if ev.DriverID != uuid.Nil && ev.DriverID != c.driverID {
		return false, nil
	}

	if !c.canShow(ev) {
		return false, nil
	}

	ride, err := c.rides.Get(ctx, ev.RideID)
	if err != nil {
		if errors.Is(err, types.ErrRideNotFound) {
			return false, nil
		}
		return false, wrap.Error(ctx, fmt.Errorf("%s: fetch ride: %w", op, err))
	}
	if ride.Status != types.RidePending {
		c.l.Debug(ctx, "offer ignored, ride is not pending", "status", ride.Status)
		return false, nil
	}

	c.mu.Lock()
	// the state may have moved while the ride was fetched
	if c.state == types.OfferOffered || c.lifecycle.HasActiveRide() {
		c.mu.Unlock()
		return false, nil
	}

	now := c.now()
	offer := &models.RideOffer{
		RideID:       ride.ID,
		DriverID:     c.driverID,
		FareEstimate: ride.FareEstimate,
		Pickup:       ride.Pickup,
		Dropoff:      ride.Dropoff,
		OfferedAt:    now,
		ExpiresAt:    ev.ExpiresAt,
	}

	c.seq++
	seq := c.seq
	c.state = types.OfferOffered
	c.offer = offer
	c.ride = ride
	c.deadline = now.Add(c.countdown)
	c.timer = c.schedule(c.countdown, func() { c.expire(seq) })
	c.mu.Unlock()

	c.l.Info(ctx, "ride offer received", "fare", offer.FareEstimate, "countdown", c.countdown)
	c.notifier.Notify(ctx, models.Notice{
		Kind:   types.NoticeOfferReceived,
		Title:  "New ride offer",
		RideID: &offer.RideID,
		Data:   map[string]any{"fare": offer.FareEstimate, "countdown_seconds": int(c.countdown.Seconds())},
	})

	return true, nil
}

func (c *Controller) canShow(ev models.OfferInserted) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == types.OfferOffered {
		return false
	}
	if c.lifecycle.HasActiveRide() {
		return false
	}
	if !ev.ExpiresAt.IsZero() && !c.now().Before(ev.ExpiresAt) {
		return false
	}
	return true
}

// Poll looks up a still valid pending offer and announces it.
func (c *Controller) Poll(ctx context.Context) (bool, error) {
	const op = "Offer.Poll"

	c.mu.Lock()
	busy := c.state == types.OfferOffered || c.lifecycle.HasActiveRide()
	c.mu.Unlock()
	if busy {
		return false, nil
	}

	pending, err := c.offers.PendingForDriver(ctx, c.driverID, c.now())
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if pending == nil {
		return false, nil
	}

	return c.Announce(ctx, models.OfferInserted{
		DriverID:  c.driverID,
		RideID:    pending.RideID,
		ExpiresAt: pending.ExpiresAt,
	})
}

// Accept claims the offered ride. A lost race clears the offer and returns
// ErrOfferUnavailable; there is no retry.
func (c *Controller) Accept(ctx context.Context) (*models.Ride, error) {
	const op = "Offer.Accept"
	ctx = wrap.WithAction(ctx, types.ActionOfferAccept)

	c.mu.Lock()
	if c.lifecycle.HasActiveRide() {
		c.mu.Unlock()
		return nil, types.ErrActiveRideExists
	}
	if c.state != types.OfferOffered {
		c.mu.Unlock()
		return nil, types.ErrNoOffer
	}
	if !c.presence.IsOnline() {
		c.mu.Unlock()
		return nil, types.ErrDriverOffline
	}
	if c.accepting || c.held {
		c.mu.Unlock()
		return nil, types.ErrActionInProgress
	}
	c.accepting = true
	c.stopTimerLocked()
	ride := *c.ride
	c.mu.Unlock()

	ctx = wrap.WithRideID(ctx, ride.ID.String())
	err := c.dispatch.Accept(ctx, ride.ID, c.driverID)
	if err != nil {
		c.finishAccept()
		metrics.OffersTotal.WithLabelValues("unavailable").Inc()
		c.l.Warn(ctx, "accept rejected, ride no longer available", "error", err.Error())
		c.notifier.Notify(ctx, models.Notice{
			Kind:   types.NoticeOfferUnavailable,
			Title:  "Ride no longer available",
			RideID: &ride.ID,
		})
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w: %v", op, types.ErrOfferUnavailable, err))
	}

	// accepting stays set until the ride is active
	ride.Status = types.RideAccepted
	ride.DriverID = &c.driverID
	err = c.lifecycle.Activate(ctx, ride)
	c.finishAccept()
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	metrics.OffersTotal.WithLabelValues(string(types.OfferAccepted)).Inc()
	c.l.Info(ctx, "ride offer accepted")
	return &ride, nil
}

func (c *Controller) finishAccept() {
	c.mu.Lock()
	c.accepting = false
	c.clearLocked()
	c.mu.Unlock()
}

// Decline clears the offer at once, then releases it. Release failures are
// only logged.
func (c *Controller) Decline(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionOfferDecline)

	c.mu.Lock()
	if c.state != types.OfferOffered || c.accepting {
		c.mu.Unlock()
		return types.ErrNoOffer
	}
	offer := *c.offer
	c.stopTimerLocked()
	c.clearLocked()
	c.mu.Unlock()

	c.release(ctx, offer, types.OfferDeclined)
	return nil
}

// Dismiss releases the shown offer as declined. It does nothing when no
// offer is shown or an accept is on the wire.
func (c *Controller) Dismiss(ctx context.Context) bool {
	ctx = wrap.WithAction(ctx, types.ActionOfferDecline)

	c.mu.Lock()
	if c.state != types.OfferOffered || c.accepting {
		c.mu.Unlock()
		return false
	}
	offer := *c.offer
	c.stopTimerLocked()
	c.clearLocked()
	c.mu.Unlock()

	c.l.Info(ctx, "offer dismissed, driver went offline")
	c.release(ctx, offer, types.OfferDeclined)
	return true
}

// Hold keeps new accepts out until release is called. It fails while an
// accept is already on the wire, since that accept may still activate a ride.
func (c *Controller) Hold() (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accepting || c.held {
		return nil, false
	}
	c.held = true
	return func() {
		c.mu.Lock()
		c.held = false
		c.mu.Unlock()
	}, true
}

// expire fires when the countdown of offer seq runs out.
func (c *Controller) expire(seq uint64) {
	ctx := wrap.WithAction(context.Background(), types.ActionOfferExpire)

	c.mu.Lock()
	if seq != c.seq || c.state != types.OfferOffered || c.accepting {
		c.mu.Unlock()
		return
	}
	offer := *c.offer
	c.clearLocked()
	c.mu.Unlock()

	c.release(ctx, offer, types.OfferExpired)
}

func (c *Controller) release(ctx context.Context, offer models.RideOffer, resolution types.OfferState) {
	ctx = wrap.WithRideID(ctx, offer.RideID.String())

	metrics.OffersTotal.WithLabelValues(string(resolution)).Inc()
	c.notifier.Notify(ctx, models.Notice{
		Kind:   types.NoticeOfferCleared,
		Title:  "Offer closed",
		RideID: &offer.RideID,
		Data:   map[string]any{"resolution": resolution},
	})

	if err := c.offers.Decline(ctx, offer.RideID, c.driverID); err != nil {
		c.l.Warn(ctx, "failed to release offer", "resolution", resolution, "error", err.Error())
		return
	}
	c.l.Info(ctx, "ride offer released", "resolution", resolution)
}

// Withdraw drops the offer for rideID after the passenger cancelled it.
// Nothing is released: the ride is already gone.
func (c *Controller) Withdraw(ctx context.Context, rideID uuid.UUID) bool {
	c.mu.Lock()
	if c.state != types.OfferOffered || c.offer.RideID != rideID {
		c.mu.Unlock()
		return false
	}
	c.stopTimerLocked()
	c.clearLocked()
	c.mu.Unlock()

	metrics.OffersTotal.WithLabelValues(string(types.OfferWithdrawn)).Inc()
	c.notifier.Notify(ctx, models.Notice{
		Kind:     types.NoticePassengerCanceled,
		Blocking: true,
		Title:    "Passenger cancelled",
		Message:  "The passenger cancelled this ride.",
		RideID:   &rideID,
	})
	return true
}

// Snapshot returns the current offer state.
func (c *Controller) Snapshot() models.OfferSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.OfferSnapshot{State: c.state}
	if c.state != types.OfferOffered {
		return snap
	}

	offer := *c.offer
	ride := *c.ride
	snap.Offer = &offer
	snap.Ride = &ride
	if remaining := c.deadline.Sub(c.now()); remaining > 0 {
		snap.RemainingSeconds = int(math.Ceil(remaining.Seconds()))
	}
	return snap
}

// Close stops the countdown without releasing the offer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) clearLocked() {
	c.state = types.OfferIdle
	c.offer = nil
	c.ride = nil
	c.deadline = time.Time{}
	c.timer = nil
}
