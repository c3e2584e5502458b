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
	"github.com/Temutjin2k/driver-engine/pkg/trm"
	"github.com/google/uuid"
)

type OfferRepo struct {
	db  *pgxpool.Pool
	trm trm.TxManager
}

func NewOfferRepo(db *pgxpool.Pool, trm trm.TxManager) *OfferRepo {
	return &OfferRepo{db: db, trm: trm}
}

func (r *OfferRepo) PendingForDriver(ctx context.Context, driverID uuid.UUID, now time.Time) (offer *models.RideOffer, err error) {
	const op = "OfferRepo.PendingForDriver"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT ride_id, driver_id, created_at, expires_at
		FROM ride_offers
		WHERE driver_id = $1 AND status = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`

	offer = &models.RideOffer{}
	err = TxorDB(ctx, r.db).QueryRow(ctx, query, driverID, types.OfferRowPending, now).
		Scan(&offer.RideID, &offer.DriverID, &offer.OfferedAt, &offer.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			return nil, nil
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return offer, nil
}

// Decline marks the offer rejected and hands the ride back to matching in
// one transaction. Declining an offer that was already released is a no-op
// on the offer row.
func (r *OfferRepo) Decline(ctx context.Context, rideID, driverID uuid.UUID) (err error) {
	const op = "OfferRepo.Decline"
	defer observe(op, time.Now(), &err)

	if _, err = r.release(ctx, rideID, driverID, types.OfferRowRejected, true); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// Expire marks a pending offer expired and hands the ride back to matching
// in one transaction. It reports false when the offer was no longer pending;
// the ride is left alone then.
func (r *OfferRepo) Expire(ctx context.Context, rideID, driverID uuid.UUID) (released bool, err error) {
	const op = "OfferRepo.Expire"
	defer observe(op, time.Now(), &err)

	released, err = r.release(ctx, rideID, driverID, types.OfferRowExpired, false)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return released, nil
}

// release moves a pending offer to status and calls driver_reject_ride. With
// always unset the ride is only released if the offer row was still pending.
func (r *OfferRepo) release(ctx context.Context, rideID, driverID uuid.UUID, status string, always bool) (bool, error) {
	var released bool
	err := r.trm.Do(ctx, func(ctx context.Context) error {
		q := TxorDB(ctx, r.db)

		update := `
			UPDATE ride_offers
			SET status = $3
			WHERE ride_id = $1 AND driver_id = $2 AND status = $4`
		tag, err := q.Exec(ctx, update, rideID, driverID, status, types.OfferRowPending)
		if err != nil {
			return fmt.Errorf("mark %s: %w", status, err)
		}
		if tag.RowsAffected() == 0 && !always {
			return nil
		}

		if _, err := q.Exec(ctx, `SELECT driver_reject_ride($1, $2)`, rideID, driverID); err != nil {
			return fmt.Errorf("driver_reject_ride: %w", err)
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// Stale returns pending offers past their deadline. The rows are left
// pending; Expire resolves them one by one.
func (r *OfferRepo) Stale(ctx context.Context, now time.Time) (stale []models.ExpiredOffer, err error) {
	const op = "OfferRepo.Stale"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT ride_id, driver_id
		FROM ride_offers
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, types.OfferRowPending, now)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	for rows.Next() {
		var o models.ExpiredOffer
		if err = rows.Scan(&o.RideID, &o.DriverID); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		stale = append(stale, o)
	}
	if err = rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return stale, nil
}
