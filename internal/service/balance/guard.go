package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
)

type (
	Session interface {
		IsOnline() bool
		Balance() float64
		HasActiveRide() bool
	}

	// AcceptGate keeps offer accepts out while the driver is taken offline.
	AcceptGate interface {
		Hold() (release func(), ok bool)
	}

	Offliner interface {
		ForceOffline(ctx context.Context)
	}

	Notifier interface {
		Notify(ctx context.Context, n models.Notice)
	}
)

// ShouldForceOffline reports whether a driver must be taken offline for debt.
// A driver with an active ride is never forced offline.
func ShouldForceOffline(online bool, balance, ceiling float64, activeRide bool) bool {
	return online && balance < ceiling && !activeRide
}

// Guard watches the session and forces the driver offline once the balance
// drops below the debt ceiling outside of a ride.
type Guard struct {
	session  Session
	gate     AcceptGate
	offliner Offliner
	notifier Notifier
	ceiling  float64
	interval time.Duration
	l        logger.Logger

	trigger chan struct{}
}

func NewGuard(session Session, gate AcceptGate, offliner Offliner, notifier Notifier, ceiling float64, interval time.Duration, l logger.Logger) *Guard {
	return &Guard{
		session:  session,
		gate:     gate,
		offliner: offliner,
		notifier: notifier,
		ceiling:  ceiling,
		interval: interval,
		l:        l,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger asks for a re-check. Triggers coalesce and never block.
func (g *Guard) Trigger() {
	select {
	case g.trigger <- struct{}{}:
	default:
	}
}

// Check evaluates the session once and reports whether the driver was forced
// offline. The session is read again with accepts held, so a ride accepted
// concurrently is never left running on an offline driver. Check is skipped
// while an accept is on the wire; the caller triggers again once it returns.
func (g *Guard) Check(ctx context.Context) bool {
	ctx = wrap.WithAction(ctx, types.ActionBalanceGuard)

	if !g.due() {
		return false
	}

	release, ok := g.gate.Hold()
	if !ok {
		g.l.Debug(ctx, "accept in flight, balance check deferred")
		return false
	}
	defer release()

	balance := g.session.Balance()
	if !g.due() {
		return false
	}

	g.l.Warn(ctx, "balance below debt ceiling, forcing offline", "balance", balance, "ceiling", g.ceiling)
	g.offliner.ForceOffline(ctx)
	metrics.ForcedOfflineTotal.Inc()

	g.notifier.Notify(ctx, models.Notice{
		Kind:     types.NoticeSuspended,
		Blocking: true,
		Title:    "Account suspended",
		Message:  fmt.Sprintf("Your balance is %.0f DZD, below the allowed %.0f DZD. Settle your debt to go online again.", balance, g.ceiling),
		Data:     map[string]any{"balance": balance, "ceiling": g.ceiling},
	})
	return true
}

func (g *Guard) due() bool {
	return ShouldForceOffline(g.session.IsOnline(), g.session.Balance(), g.ceiling, g.session.HasActiveRide())
}

// Run checks on every trigger and on a periodic tick until ctx is done.
func (g *Guard) Run(ctx context.Context) {
	var tick <-chan time.Time
	if g.interval > 0 {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.trigger:
			g.Check(ctx)
		case <-tick:
			g.Check(ctx)
		}
	}
}
