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
	"github.com/Temutjin2k/driver-engine/pkg/postgres"
)

// LedgerRepo appends cancellation logs and payment disputes.
type LedgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepo(db *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) RecordCancellation(ctx context.Context, rec models.CancellationRecord) (err error) {
	const op = "LedgerRepo.RecordCancellation"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO cancellation_logs (
			id, ride_id, driver_id, reason,
			driver_location_lat, driver_location_lng,
			wait_time_seconds, fee_eligible, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		rec.ID, rec.RideID, rec.DriverID, rec.Reason,
		rec.DriverLat, rec.DriverLng,
		rec.WaitTimeSeconds, rec.FeeEligible, rec.CreatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrRideNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// RecordDispute inserts d unless the ride already has a dispute. It returns
// the stored row and whether this call created it.
func (r *LedgerRepo) RecordDispute(ctx context.Context, d models.PaymentDispute) (stored models.PaymentDispute, created bool, err error) {
	const op = "LedgerRepo.RecordDispute"
	defer observe(op, time.Now(), &err)

	query := `
		WITH ins AS (
			INSERT INTO payment_disputes (
				id, ride_id, driver_id, passenger_id,
				expected_amount, paid_amount, missing_amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (ride_id) DO NOTHING
			RETURNING id, ride_id, driver_id, passenger_id,
				expected_amount, paid_amount, missing_amount, created_at, true AS created
		)
		SELECT * FROM ins
		UNION ALL
		SELECT id, ride_id, driver_id, passenger_id,
			expected_amount, paid_amount, missing_amount, created_at, false
		FROM payment_disputes
		WHERE ride_id = $2 AND NOT EXISTS (SELECT 1 FROM ins)`

	err = TxorDB(ctx, r.db).QueryRow(ctx, query,
		d.ID, d.RideID, d.DriverID, d.PassengerID,
		d.ExpectedAmount, d.PaidAmount, d.MissingAmount, d.CreatedAt,
	).Scan(
		&stored.ID, &stored.RideID, &stored.DriverID, &stored.PassengerID,
		&stored.ExpectedAmount, &stored.PaidAmount, &stored.MissingAmount, &stored.CreatedAt, &created,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// a concurrent insert committed after this statement began
			err = fmt.Errorf("%s: dispute for ride %s not visible yet", op, d.RideID)
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return models.PaymentDispute{}, false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return stored, created, nil
}
