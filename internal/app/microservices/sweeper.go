package microservices

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/driver-engine/config"
	repo "github.com/Temutjin2k/driver-engine/internal/adapter/postgres"
	"github.com/Temutjin2k/driver-engine/internal/service/sweeper"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/Temutjin2k/driver-engine/pkg/postgres"
	"github.com/Temutjin2k/driver-engine/pkg/trm"
)

// OfferSweeper releases expired offers on a schedule.
type OfferSweeper struct {
	postgresDB *postgres.PostgreDB
	sweeper    *sweeper.Sweeper

	cfg config.Config
	log logger.Logger
}

func NewOfferSweeper(ctx context.Context, cfg config.Config, log logger.Logger) (*OfferSweeper, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database, postgres.WithPoolLimits(
		cfg.Database.MaxConns,
		cfg.Database.MinConns,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	))
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	offers := repo.NewOfferRepo(postgresDB.Pool, trm.New(postgresDB.Pool))

	return &OfferSweeper{
		postgresDB: postgresDB,
		sweeper:    sweeper.New(offers, cfg.Sweeper.Interval, log),
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *OfferSweeper) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		s.postgresDB.Close()
		s.log.Info(context.WithoutCancel(ctx), "offer sweeper closed")
	}()

	s.log.Info(ctx, "offer sweeper started", "interval", s.cfg.Sweeper.Interval)

	if err := s.sweeper.Run(ctx); err != nil {
		return err
	}

	s.log.Info(context.WithoutCancel(ctx), "shutting down application")
	return nil
}
