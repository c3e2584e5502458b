package ride

import (
	"context"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/google/uuid"
)

type (
	// Dispatch performs the authoritative status transitions on the backend.
	Dispatch interface {
		Arrived(ctx context.Context, rideID, driverID uuid.UUID) error
		Start(ctx context.Context, rideID, driverID uuid.UUID) error
		Complete(ctx context.Context, rideID, driverID uuid.UUID) error
	}

	RideRepo interface {
		Cancel(ctx context.Context, rideID uuid.UUID) error
	}

	Ledger interface {
		RecordCancellation(ctx context.Context, rec models.CancellationRecord) error
		// RecordDispute stores d unless a dispute for the ride exists. It
		// returns the stored dispute and whether it was created by this call.
		RecordDispute(ctx context.Context, d models.PaymentDispute) (models.PaymentDispute, bool, error)
	}

	LocationSource interface {
		LastKnown(ctx context.Context) (models.LocationSample, bool)
	}

	Notifier interface {
		Notify(ctx context.Context, n models.Notice)
	}

	Timer interface {
		Stop() bool
	}

	ScheduleFunc func(d time.Duration, f func()) Timer
)

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
