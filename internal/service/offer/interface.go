package offer

import (
	"context"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/google/uuid"
)

type (
	RideRepo interface {
		Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	}

	OfferRepo interface {
		// PendingForDriver returns the newest pending offer that has not
		// expired at now, or nil.
		PendingForDriver(ctx context.Context, driverID uuid.UUID, now time.Time) (*models.RideOffer, error)
		// Decline releases the ride back to matching. Idempotent.
		Decline(ctx context.Context, rideID, driverID uuid.UUID) error
	}

	Dispatch interface {
		Accept(ctx context.Context, rideID, driverID uuid.UUID) error
	}

	// RideLifecycle receives accepted rides.
	RideLifecycle interface {
		HasActiveRide() bool
		Activate(ctx context.Context, ride models.Ride) error
	}

	// Presence reports whether the driver is online.
	Presence interface {
		IsOnline() bool
	}

	Notifier interface {
		Notify(ctx context.Context, n models.Notice)
	}

	// Timer is a scheduled callback that can be cancelled.
	Timer interface {
		Stop() bool
	}

	ScheduleFunc func(d time.Duration, f func()) Timer
)

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
