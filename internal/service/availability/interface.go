package availability

import (
	"context"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/google/uuid"
)

type (
	IntentStore interface {
		Load(ctx context.Context) (models.Intent, error)
		SetOnline(ctx context.Context, online bool) error
	}

	Tracker interface {
		Start(ctx context.Context) error
		Stop(ctx context.Context) error
		IsRunning() bool
	}

	LocationSource interface {
		ServicesEnabled(ctx context.Context) bool
		Current(ctx context.Context, timeout time.Duration) (models.LocationSample, error)
		LastKnown(ctx context.Context) (models.LocationSample, bool)
	}

	Ingest interface {
		Send(ctx context.Context, batch models.LocationBatch) error
	}

	Dispatch interface {
		GoOffline(ctx context.Context, driverID uuid.UUID) error
	}

	ProfileRepo interface {
		SetOnline(ctx context.Context, driverID uuid.UUID, online bool) error
	}

	BalanceSource interface {
		Balance() float64
	}

	Notifier interface {
		Notify(ctx context.Context, n models.Notice)
	}
)
