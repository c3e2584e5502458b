package ride

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/google/uuid"
)

// Cancel ends the ride for one of the driver reasons. Local state is cleared
// whatever the backend answers.
func (c *Controller) Cancel(ctx context.Context, reason types.CancelReason) error {
	ctx = wrap.WithAction(ctx, types.ActionRideCancel)

	c.mu.Lock()
	if c.ride == nil {
		c.mu.Unlock()
		return types.ErrNoActiveRide
	}
	if !reason.AllowedIn(c.ride.Status) {
		status := c.ride.Status
		c.mu.Unlock()
		return fmt.Errorf("%w: %s while %s", types.ErrInvalidCancelReason, reason, status)
	}
	wait := c.waitSecondsLocked()
	ride := c.clearLocked()
	c.mu.Unlock()

	c.cancel(ctx, ride, reason, wait, false)
	return nil
}

// ChargeNoShow cancels the ride with a fee for the passenger. It is only
// available at pickup once the wait reached the no-show threshold.
func (c *Controller) ChargeNoShow(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRideNoShow)

	c.mu.Lock()
	if c.ride == nil {
		c.mu.Unlock()
		return types.ErrNoActiveRide
	}
	wait := c.waitSecondsLocked()
	if c.ride.Status != types.RideArrived || !(c.noShowReady || float64(wait) >= c.cfg.NoShowAfter.Seconds()) {
		c.mu.Unlock()
		return types.ErrNoShowNotAvailable
	}
	ride := c.clearLocked()
	c.mu.Unlock()

	c.cancel(ctx, ride, types.CancelNoShow, wait, true)
	return nil
}

func (c *Controller) cancel(ctx context.Context, ride models.Ride, reason types.CancelReason, wait int, fee bool) {
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	rec := models.CancellationRecord{
		ID:              uuid.New(),
		RideID:          ride.ID,
		DriverID:        c.driverID,
		Reason:          reason,
		WaitTimeSeconds: wait,
		FeeEligible:     fee,
		CreatedAt:       c.now(),
	}
	if loc, ok := c.location.LastKnown(ctx); ok {
		rec.DriverLat = &loc.Lat
		rec.DriverLng = &loc.Lng
	}

	if err := c.ledger.RecordCancellation(ctx, rec); err != nil {
		c.l.Error(ctx, "failed to record cancellation", err, "reason", reason)
	}
	if err := c.rides.Cancel(ctx, ride.ID); err != nil {
		c.l.Error(ctx, "failed to cancel ride", err, "reason", reason)
	}

	ride.Status = types.RideCancelled
	metrics.RidesTotal.WithLabelValues(string(types.RideCancelled)).Inc()
	c.l.Info(ctx, "ride cancelled by driver", "reason", reason, "wait_seconds", wait, "fee_eligible", fee)
	c.notifier.Notify(ctx, models.Notice{
		Kind:    types.NoticeRideCancelled,
		Title:   "Cancelled",
		Message: "Ride cancelled successfully.",
		RideID:  &ride.ID,
		Data:    map[string]any{"reason": reason, "fee_eligible": fee},
	})

	c.ended(ctx, ride)
}

// OnStatusChanged handles status changes pushed by the backend. A remote
// cancellation of the active ride tears it down from any local state.
func (c *Controller) OnStatusChanged(ctx context.Context, rideID uuid.UUID, status types.RideStatus) bool {
	if status != types.RideCancelled {
		return false
	}
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionRemoteCancel), rideID.String())

	c.mu.Lock()
	if c.ride == nil || c.ride.ID != rideID {
		c.mu.Unlock()
		return false
	}
	ride := c.clearLocked()
	c.mu.Unlock()

	ride.Status = types.RideCancelled
	metrics.RidesTotal.WithLabelValues(string(types.RideCancelled)).Inc()
	c.l.Warn(ctx, "ride cancelled by passenger")
	c.notifier.Notify(ctx, models.Notice{
		Kind:     types.NoticePassengerCanceled,
		Blocking: true,
		Title:    "Passenger cancelled",
		Message:  "The passenger cancelled this ride.",
		RideID:   &rideID,
	})

	c.ended(ctx, ride)
	return true
}
