package session

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
)

// HandleEvent routes one realtime event.
func (e *Engine) HandleEvent(ctx context.Context, ev models.Event) error {
	ctx = wrap.WithAction(ctx, types.ActionEventConsume)

	switch {
	case ev.Type == types.EventOfferInserted && ev.OfferInserted != nil:
		return e.OfferInserted(ctx, *ev.OfferInserted)
	case ev.Type == types.EventRideStatusChanged && ev.RideStatusChanged != nil:
		e.RideStatusChanged(ctx, *ev.RideStatusChanged)
		return nil
	case ev.Type == types.EventBalanceChanged && ev.BalanceChanged != nil:
		e.BalanceChanged(ctx, *ev.BalanceChanged)
		return nil
	default:
		return fmt.Errorf("unsupported event %q", ev.Type)
	}
}

// OfferInserted shows a pushed offer. Offers are ignored while offline.
func (e *Engine) OfferInserted(ctx context.Context, ev models.OfferInserted) error {
	if ev.DriverID != e.driverID || !e.avail.IsOnline() {
		return nil
	}

	shown, err := e.offers.Announce(ctx, ev)
	if shown {
		e.publish()
	}
	return err
}

// RideStatusChanged tears down the active ride or the shown offer when the
// passenger cancels.
func (e *Engine) RideStatusChanged(ctx context.Context, ev models.RideStatusChanged) {
	if ev.Status != types.RideCancelled {
		return
	}

	if e.rides.OnStatusChanged(ctx, ev.RideID, ev.Status) || e.offers.Withdraw(ctx, ev.RideID) {
		e.publish()
	}
}

// BalanceChanged applies a pushed balance and re-checks the debt ceiling.
func (e *Engine) BalanceChanged(ctx context.Context, ev models.BalanceChanged) {
	if ev.DriverID != e.driverID {
		return
	}

	e.setBalance(ev.Balance)
	e.l.Info(ctx, "balance changed", "balance", ev.Balance)
	e.guard.Trigger()
	e.publish()
}
