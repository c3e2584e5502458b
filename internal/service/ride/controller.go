package ride

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type Config struct {
	// NoShowAfter is the wait at pickup after which a no-show can be charged.
	NoShowAfter time.Duration
}

// Controller drives the accepted ride of the driver:
//
//	ACCEPTED -> ARRIVED -> IN_PROGRESS -> COMPLETED
//	any of them -> CANCELLED
//
// Forward transitions advance only after the backend confirms them. Exits
// clear local state at once and report to the backend best-effort.
type Controller struct {
	driverID uuid.UUID
	dispatch Dispatch
	rides    RideRepo
	ledger   Ledger
	location LocationSource
	notifier Notifier
	cfg      Config
	l        logger.Logger

	now      func() time.Time
	schedule ScheduleFunc

	mu          sync.Mutex
	ride        *models.Ride
	pending     bool
	arrivedAt   time.Time
	noShowTimer Timer
	noShowReady bool
	// first dispute recorded for the active ride
	dispute *models.PaymentDispute
	onEnded func(ctx context.Context, ride models.Ride)
}

func NewController(
	driverID uuid.UUID,
	dispatch Dispatch,
	rides RideRepo,
	ledger Ledger,
	location LocationSource,
	notifier Notifier,
	cfg Config,
	l logger.Logger,
) *Controller {
	return &Controller{
		driverID: driverID,
		dispatch: dispatch,
		rides:    rides,
		ledger:   ledger,
		location: location,
		notifier: notifier,
		cfg:      cfg,
		l:        l,
		now:      time.Now,
		schedule: afterFunc,
	}
}

// WithScheduler replaces the clock and timer source. Used by tests.
func (c *Controller) WithScheduler(now func() time.Time, schedule ScheduleFunc) *Controller {
	c.now = now
	c.schedule = schedule
	return c
}

// OnEnded registers fn to run after the ride completes or is cancelled.
func (c *Controller) OnEnded(fn func(ctx context.Context, ride models.Ride)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnded = fn
}

// Activate takes over an accepted ride, or resumes one found at startup.
func (c *Controller) Activate(ctx context.Context, ride models.Ride) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ride != nil {
		return types.ErrActiveRideExists
	}
	if !ride.Status.IsActive() {
		return fmt.Errorf("%w: cannot activate ride in status %s", types.ErrInvalidTransition, ride.Status)
	}

	c.ride = &ride
	c.pending = false
	c.dispute = nil
	c.noShowReady = false

	if ride.Status == types.RideArrived {
		arrived := c.now()
		if ride.ArrivedAt != nil {
			arrived = *ride.ArrivedAt
		}
		c.startWaitLocked(arrived)
	}

	c.l.Info(wrap.WithRideID(ctx, ride.ID.String()), "ride activated", "status", ride.Status)
	return nil
}

func (c *Controller) HasActiveRide() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ride != nil
}

// Active returns a copy of the active ride, or nil.
func (c *Controller) Active() *models.Ride {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ride == nil {
		return nil
	}
	r := *c.ride
	return &r
}

// Arrive reports arrival at pickup and starts the wait clock.
func (c *Controller) Arrive(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRideArrive)

	return c.forward(ctx, types.RideAccepted, types.RideArrived, c.dispatch.Arrived, func(r *models.Ride) {
		now := c.now()
		r.ArrivedAt = &now
		c.startWaitLocked(now)
	})
}

// Start begins the trip once the passenger's code matches. A wrong code has
// no side effects.
func (c *Controller) Start(ctx context.Context, code string) error {
	ctx = wrap.WithAction(ctx, types.ActionRideStart)

	c.mu.Lock()
	if c.ride == nil {
		c.mu.Unlock()
		return types.ErrNoActiveRide
	}
	if c.ride.Status != types.RideArrived {
		status := c.ride.Status
		c.mu.Unlock()
		return fmt.Errorf("%w: start from %s", types.ErrInvalidTransition, status)
	}
	match := code == c.ride.StartCode
	c.mu.Unlock()

	if !match {
		return types.ErrWrongCode
	}

	return c.forward(ctx, types.RideArrived, types.RideInProgress, c.dispatch.Start, func(*models.Ride) {
		c.stopWaitLocked()
	})
}

// forward runs a confirmed transition from -> to. apply runs under the lock
// after the backend accepted the change.
func (c *Controller) forward(
	ctx context.Context,
	from, to types.RideStatus,
	call func(ctx context.Context, rideID, driverID uuid.UUID) error,
	apply func(r *models.Ride),
) error {
	const op = "Ride.forward"

	ride, err := c.begin(from)
	if err != nil {
		return err
	}
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	callErr := call(ctx, ride.ID, c.driverID)

	c.mu.Lock()
	c.pending = false
	if c.ride == nil || c.ride.ID != ride.ID {
		// cancelled while the call was in flight
		c.mu.Unlock()
		return types.ErrNoActiveRide
	}
	if callErr != nil {
		c.mu.Unlock()
		c.statusFailed(ctx, ride, to, callErr)
		return wrap.Error(ctx, fmt.Errorf("%s: %s: %w: %w", op, to, types.ErrStatusUpdateFailed, callErr))
	}
	c.ride.Status = to
	if apply != nil {
		apply(c.ride)
	}
	c.mu.Unlock()

	c.l.Info(ctx, "ride status updated", "from", from, "to", to)
	return nil
}

// begin checks that a forward action from status may start and marks it
// pending.
func (c *Controller) begin(from types.RideStatus) (models.Ride, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ride == nil {
		return models.Ride{}, types.ErrNoActiveRide
	}
	if c.ride.Status != from {
		return models.Ride{}, fmt.Errorf("%w: expected %s, ride is %s", types.ErrInvalidTransition, from, c.ride.Status)
	}
	if c.pending {
		return models.Ride{}, types.ErrActionInProgress
	}
	c.pending = true
	return *c.ride, nil
}

func (c *Controller) statusFailed(ctx context.Context, ride models.Ride, to types.RideStatus, err error) {
	c.l.Error(ctx, "ride status update failed", err, "target", to)
	c.notifier.Notify(ctx, models.Notice{
		Kind:     types.NoticeStatusFailed,
		Blocking: true,
		Title:    "Error",
		Message:  "Could not update ride status. Check your connection and try again.",
		RideID:   &ride.ID,
		Data:     map[string]any{"target": to},
	})
}

func (c *Controller) startWaitLocked(arrived time.Time) {
	c.stopWaitLocked()
	c.arrivedAt = arrived

	remaining := c.cfg.NoShowAfter - c.now().Sub(arrived)
	if remaining <= 0 {
		c.noShowReady = true
		return
	}

	rideID := c.ride.ID
	c.noShowTimer = c.schedule(remaining, func() { c.noShowDue(rideID) })
}

func (c *Controller) stopWaitLocked() {
	if c.noShowTimer != nil {
		c.noShowTimer.Stop()
		c.noShowTimer = nil
	}
	c.arrivedAt = time.Time{}
	c.noShowReady = false
}

func (c *Controller) noShowDue(rideID uuid.UUID) {
	c.mu.Lock()
	if c.ride == nil || c.ride.ID != rideID || c.ride.Status != types.RideArrived {
		c.mu.Unlock()
		return
	}
	c.noShowReady = true
	c.noShowTimer = nil
	c.mu.Unlock()

	ctx := wrap.WithRideID(wrap.WithAction(context.Background(), types.ActionRideNoShow), rideID.String())
	c.notifier.Notify(ctx, models.Notice{
		Kind:   types.NoticeNoShowAvailable,
		Title:  "Passenger not here?",
		RideID: &rideID,
	})
}

// waitSecondsLocked is the time spent at pickup. It only counts while ARRIVED.
func (c *Controller) waitSecondsLocked() int {
	if c.ride == nil || c.ride.Status != types.RideArrived || c.arrivedAt.IsZero() {
		return 0
	}
	if d := c.now().Sub(c.arrivedAt); d > 0 {
		return int(d.Seconds())
	}
	return 0
}

// Snapshot returns the current ride state.
func (c *Controller) Snapshot() models.RideSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ride == nil {
		return models.RideSnapshot{}
	}
	r := *c.ride
	return models.RideSnapshot{
		Ride:            &r,
		Pending:         c.pending,
		WaitSeconds:     c.waitSecondsLocked(),
		NoShowAvailable: c.noShowReady,
		CancelReasons:   types.CancelReasonsFor(r.Status),
	}
}

// Close stops the no-show timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noShowTimer != nil {
		c.noShowTimer.Stop()
		c.noShowTimer = nil
	}
}

// clearLocked drops the active ride and returns it.
func (c *Controller) clearLocked() models.Ride {
	r := *c.ride
	c.stopWaitLocked()
	c.ride = nil
	c.pending = false
	c.dispute = nil
	return r
}

func (c *Controller) ended(ctx context.Context, ride models.Ride) {
	c.mu.Lock()
	fn := c.onEnded
	c.mu.Unlock()

	if fn != nil {
		fn(ctx, ride)
	}
}
