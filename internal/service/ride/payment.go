package ride

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/google/uuid"
)

// ParseAmount parses the cash amount typed by the driver.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, types.ErrInvalidAmount
	}
	if err := validAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

func validAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return types.ErrInvalidAmount
	}
	return nil
}

// Complete finishes the trip after the driver collected cash. A shortfall is
// recorded as a payment dispute before the ride is completed, once per ride.
// Once a dispute is recorded a retry must report the same amount.
func (c *Controller) Complete(ctx context.Context, collected float64) (*models.Completion, error) {
	const op = "Ride.Complete"
	ctx = wrap.WithAction(ctx, types.ActionRideComplete)

	if err := validAmount(collected); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.ride != nil && c.ride.Status == types.RideInProgress && collected > c.ride.FareEstimate {
		c.mu.Unlock()
		return nil, types.ErrAmountExceedsFare
	}
	if c.dispute != nil && collected != c.dispute.PaidAmount {
		c.mu.Unlock()
		return nil, types.ErrAmountChanged
	}
	c.mu.Unlock()

	ride, err := c.begin(types.RideInProgress)
	if err != nil {
		return nil, err
	}
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	completion := &models.Completion{
		RideID:    ride.ID,
		Fare:      ride.FareEstimate,
		Collected: collected,
	}

	if collected < ride.FareEstimate {
		dispute, err := c.recordDispute(ctx, ride, collected)
		if err != nil {
			c.abort(ride.ID)
			c.statusFailed(ctx, ride, types.RideCompleted, err)
			return nil, wrap.Error(ctx, fmt.Errorf("%s: record dispute: %w: %w", op, types.ErrStatusUpdateFailed, err))
		}
		if dispute.PaidAmount != collected {
			// recorded before a restart with another amount
			c.abort(ride.ID)
			return nil, types.ErrAmountChanged
		}
		completion.Dispute = dispute
	}

	if err := c.dispatch.Complete(ctx, ride.ID, c.driverID); err != nil {
		c.abort(ride.ID)
		c.statusFailed(ctx, ride, types.RideCompleted, err)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrStatusUpdateFailed, err))
	}

	c.mu.Lock()
	if c.ride == nil || c.ride.ID != ride.ID {
		c.mu.Unlock()
		return nil, types.ErrNoActiveRide
	}
	ended := c.clearLocked()
	c.mu.Unlock()
	ended.Status = types.RideCompleted

	metrics.RidesTotal.WithLabelValues(string(types.RideCompleted)).Inc()
	c.l.Info(ctx, "ride completed", "fare", ride.FareEstimate, "collected", collected)
	c.notifier.Notify(ctx, models.Notice{
		Kind:     types.NoticeEarned,
		Blocking: true,
		Title:    "Success",
		Message:  fmt.Sprintf("Earned %.0f DZD", ride.FareEstimate),
		RideID:   &ride.ID,
		Data:     map[string]any{"fare": ride.FareEstimate, "collected": collected},
	})

	c.ended(ctx, ended)
	return completion, nil
}

func (c *Controller) recordDispute(ctx context.Context, ride models.Ride, collected float64) (*models.PaymentDispute, error) {
	d := &models.PaymentDispute{
		ID:             uuid.New(),
		RideID:         ride.ID,
		DriverID:       c.driverID,
		PassengerID:    ride.PassengerID,
		ExpectedAmount: ride.FareEstimate,
		PaidAmount:     collected,
		MissingAmount:  ride.FareEstimate - collected,
		CreatedAt:      c.now(),
	}

	c.mu.Lock()
	if c.dispute != nil && c.dispute.RideID == ride.ID {
		stored := *c.dispute
		c.mu.Unlock()
		return &stored, nil
	}
	c.mu.Unlock()

	stored, created, err := c.ledger.RecordDispute(ctx, *d)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.ride != nil && c.ride.ID == ride.ID {
		kept := stored
		c.dispute = &kept
	}
	c.mu.Unlock()

	if created {
		metrics.PaymentDisputesTotal.Inc()
		c.l.Warn(ctx, "cash shortfall recorded", "missing", stored.MissingAmount)
	}
	return &stored, nil
}

// abort clears the pending mark after a failed completion.
func (c *Controller) abort(rideID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ride != nil && c.ride.ID == rideID {
		c.pending = false
	}
}
