package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/google/uuid"
)

type OfferRepo interface {
	// Stale returns pending offers past their deadline.
	Stale(ctx context.Context, now time.Time) ([]models.ExpiredOffer, error)
	// Expire marks one offer expired and releases its ride atomically. It
	// reports false when the offer was resolved in the meantime.
	Expire(ctx context.Context, rideID, driverID uuid.UUID) (bool, error)
}

// Sweeper releases offers whose countdown ran out without the driver
// reacting, for drivers whose client never did it.
type Sweeper struct {
	offers   OfferRepo
	interval time.Duration
	now      func() time.Time
	l        logger.Logger
}

func New(offers OfferRepo, interval time.Duration, l logger.Logger) *Sweeper {
	return &Sweeper{
		offers:   offers,
		interval: interval,
		now:      time.Now,
		l:        l,
	}
}

// Sweep runs one pass and returns the number of released offers. An offer
// whose release fails stays pending and is picked up by the next pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	const op = "Sweeper.Sweep"
	ctx = wrap.WithAction(ctx, types.ActionOfferSweep)

	stale, err := s.offers.Stale(ctx, s.now())
	if err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	released := 0
	for _, o := range stale {
		octx := wrap.WithRideID(wrap.WithDriverID(ctx, o.DriverID.String()), o.RideID.String())
		ok, err := s.offers.Expire(octx, o.RideID, o.DriverID)
		if err != nil {
			s.l.Error(octx, "failed to release expired offer", err)
			continue
		}
		if ok {
			released++
		}
	}

	if released > 0 {
		metrics.SweptOffersTotal.Add(float64(released))
		s.l.Info(ctx, "expired offers released", "stale", len(stale), "released", released)
	}
	return released, nil
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.l.Info(ctx, "offer sweeper started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.l.Error(ctx, "offer sweep failed", err)
		}

		select {
		case <-ctx.Done():
			s.l.Info(ctx, "offer sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
