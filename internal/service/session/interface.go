package session

import (
	"context"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

type (
	Availability interface {
		Reconcile(ctx context.Context) (models.ReconcileResult, error)
		SetOnline(ctx context.Context, target bool) error
		EnsureOnline(ctx context.Context) error
		IsOnline() bool
		Toggle() models.Toggle
		OnChange(fn func(ctx context.Context, online bool))
	}

	Offers interface {
		Announce(ctx context.Context, ev models.OfferInserted) (bool, error)
		Poll(ctx context.Context) (bool, error)
		Accept(ctx context.Context) (*models.Ride, error)
		Decline(ctx context.Context) error
		Dismiss(ctx context.Context) bool
		Withdraw(ctx context.Context, rideID uuid.UUID) bool
		Snapshot() models.OfferSnapshot
		Close()
	}

	Rides interface {
		Activate(ctx context.Context, ride models.Ride) error
		HasActiveRide() bool
		Arrive(ctx context.Context) error
		Start(ctx context.Context, code string) error
		Complete(ctx context.Context, collected float64) (*models.Completion, error)
		Cancel(ctx context.Context, reason types.CancelReason) error
		ChargeNoShow(ctx context.Context) error
		OnStatusChanged(ctx context.Context, rideID uuid.UUID, status types.RideStatus) bool
		Snapshot() models.RideSnapshot
		OnEnded(fn func(ctx context.Context, ride models.Ride))
		Close()
	}

	Guard interface {
		Trigger()
		Run(ctx context.Context)
	}

	ProfileRepo interface {
		Get(ctx context.Context, driverID uuid.UUID) (*models.Profile, error)
	}

	RideRepo interface {
		ActiveForDriver(ctx context.Context, driverID uuid.UUID) (*models.Ride, error)
	}

	IntentStore interface {
		SetDriver(ctx context.Context, driverID uuid.UUID) error
		Clear(ctx context.Context) error
	}

	// Broadcaster pushes messages to every connected UI.
	Broadcaster interface {
		Broadcast(msg models.WebSocketMessage)
	}
)
