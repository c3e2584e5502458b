package locationIQ

import (
	"context"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type (
	RideGetter interface {
		Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	}

	Geocoder interface {
		GetAddress(ctx context.Context, latitude, longitude float64) (string, error)
	}
)

// RideAddresses fills in missing pickup and dropoff addresses of rides shown
// to the driver. Geocoding failures leave the address blank.
type RideAddresses struct {
	rides RideGetter
	geo   Geocoder
	l     logger.Logger
}

func NewRideAddresses(rides RideGetter, geo Geocoder, l logger.Logger) *RideAddresses {
	return &RideAddresses{rides: rides, geo: geo, l: l}
}

func (r *RideAddresses) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	ride, err := r.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}

	r.fill(ctx, &ride.Pickup)
	r.fill(ctx, &ride.Dropoff)
	return ride, nil
}

func (r *RideAddresses) fill(ctx context.Context, p *models.Place) {
	if p.Address != "" {
		return
	}
	addr, err := r.geo.GetAddress(ctx, p.Lat, p.Lng)
	if err != nil {
		r.l.Warn(wrap.ErrorCtx(ctx, err), "failed to resolve address", "lat", p.Lat, "lng", p.Lng, "error", err)
		return
	}
	p.Address = addr
}
