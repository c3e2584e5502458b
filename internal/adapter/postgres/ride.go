package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

const rideColumns = `
	id, status, driver_id, passenger_id,
	pickup_lat, pickup_lng, COALESCE(pickup_address, ''),
	dropoff_lat, dropoff_lng, COALESCE(dropoff_address, ''),
	fare_estimate, COALESCE(start_code, ''), created_at, arrived_at`

func scanRide(row pgx.Row) (*models.Ride, error) {
	var ride models.Ride
	err := row.Scan(
		&ride.ID, &ride.Status, &ride.DriverID, &ride.PassengerID,
		&ride.Pickup.Lat, &ride.Pickup.Lng, &ride.Pickup.Address,
		&ride.Dropoff.Lat, &ride.Dropoff.Lng, &ride.Dropoff.Address,
		&ride.FareEstimate, &ride.StartCode, &ride.CreatedAt, &ride.ArrivedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *RideRepo) Get(ctx context.Context, rideID uuid.UUID) (ride *models.Ride, err error) {
	const op = "RideRepo.Get"
	defer observe(op, time.Now(), &err)

	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err = scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return ride, nil
}

// ActiveForDriver returns the ride the driver is currently serving.
func (r *RideRepo) ActiveForDriver(ctx context.Context, driverID uuid.UUID) (ride *models.Ride, err error) {
	const op = "RideRepo.ActiveForDriver"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE driver_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1`

	active := make([]string, 0, len(types.ActiveRideStatuses))
	for _, s := range types.ActiveRideStatuses {
		active = append(active, string(s))
	}

	ride, err = scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, driverID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return ride, nil
}

// Cancel marks an active ride cancelled. Cancelling a ride that already
// ended is a no-op.
func (r *RideRepo) Cancel(ctx context.Context, rideID uuid.UUID) (err error) {
	const op = "RideRepo.Cancel"
	defer observe(op, time.Now(), &err)

	query := `
		UPDATE rides
		SET status = 'CANCELLED', cancelled_at = now()
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')`

	if _, err = TxorDB(ctx, r.db).Exec(ctx, query, rideID); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
