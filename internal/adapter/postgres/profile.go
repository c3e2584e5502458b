package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepo(db *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) Get(ctx context.Context, driverID uuid.UUID) (p *models.Profile, err error) {
	const op = "ProfileRepo.Get"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT id, balance, is_online
		FROM profiles
		WHERE id = $1`

	p = &models.Profile{}
	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, driverID).Scan(&p.DriverID, &p.Balance, &p.IsOnline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrProfileNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return p, nil
}

func (r *ProfileRepo) SetOnline(ctx context.Context, driverID uuid.UUID, online bool) (err error) {
	const op = "ProfileRepo.SetOnline"
	defer observe(op, time.Now(), &err)

	query := `
		UPDATE profiles
		SET is_online = $2, updated_at = now()
		WHERE id = $1`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, online)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrProfileNotFound
	}
	return nil
}
