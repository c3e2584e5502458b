package session

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
)

// Commands issued by the driver through the UI. Each publishes the new
// snapshot whatever the outcome.

func (e *Engine) SetOnline(ctx context.Context, online bool) error {
	defer e.publish()

	if err := e.avail.SetOnline(ctx, online); err != nil {
		return err
	}
	if online {
		if _, err := e.offers.Poll(ctx); err != nil {
			e.l.Error(ctx, "failed to poll pending offers", err)
		}
	}
	return nil
}

// SignOut takes the driver offline and forgets the persisted session. It is
// refused while a ride is active.
func (e *Engine) SignOut(ctx context.Context) error {
	const op = "Engine.SignOut"
	ctx = wrap.WithAction(ctx, types.ActionSignOut)
	defer e.publish()

	if e.rides.HasActiveRide() {
		return types.ErrActiveRideExists
	}
	if e.avail.IsOnline() {
		if err := e.avail.SetOnline(ctx, false); err != nil {
			return err
		}
	}
	e.offers.Dismiss(ctx)

	if err := e.intent.Clear(ctx); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	e.l.Info(ctx, "driver signed out")
	return nil
}

func (e *Engine) Reconcile(ctx context.Context) (models.ReconcileResult, error) {
	defer e.publish()
	return e.avail.Reconcile(ctx)
}

func (e *Engine) AcceptOffer(ctx context.Context) (*models.Ride, error) {
	defer e.publish()
	// a balance check deferred by this accept runs again
	defer e.guard.Trigger()
	return e.offers.Accept(ctx)
}

func (e *Engine) DeclineOffer(ctx context.Context) error {
	defer e.publish()
	return e.offers.Decline(ctx)
}

func (e *Engine) Arrive(ctx context.Context) error {
	defer e.publish()
	return e.rides.Arrive(ctx)
}

func (e *Engine) StartRide(ctx context.Context, code string) error {
	defer e.publish()
	return e.rides.Start(ctx, code)
}

func (e *Engine) CompleteRide(ctx context.Context, collected float64) (*models.Completion, error) {
	defer e.publish()
	return e.rides.Complete(ctx, collected)
}

func (e *Engine) CancelRide(ctx context.Context, reason types.CancelReason) error {
	defer e.publish()
	return e.rides.Cancel(ctx, reason)
}

func (e *Engine) ChargeNoShow(ctx context.Context) error {
	defer e.publish()
	return e.rides.ChargeNoShow(ctx)
}
