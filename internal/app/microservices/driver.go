package microservices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Temutjin2k/driver-engine/config"
	"github.com/Temutjin2k/driver-engine/internal/adapter/backend"
	"github.com/Temutjin2k/driver-engine/internal/adapter/device"
	"github.com/Temutjin2k/driver-engine/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/driver-engine/internal/adapter/http/ws"
	"github.com/Temutjin2k/driver-engine/internal/adapter/kafka"
	"github.com/Temutjin2k/driver-engine/internal/adapter/locationIQ"
	repo "github.com/Temutjin2k/driver-engine/internal/adapter/postgres"
	events "github.com/Temutjin2k/driver-engine/internal/adapter/rabbit"
	intent "github.com/Temutjin2k/driver-engine/internal/adapter/redis"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/internal/service/availability"
	"github.com/Temutjin2k/driver-engine/internal/service/balance"
	"github.com/Temutjin2k/driver-engine/internal/service/offer"
	"github.com/Temutjin2k/driver-engine/internal/service/ride"
	"github.com/Temutjin2k/driver-engine/internal/service/sampler"
	"github.com/Temutjin2k/driver-engine/internal/service/session"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/postgres"
	"github.com/Temutjin2k/driver-engine/pkg/rabbit"
	"github.com/Temutjin2k/driver-engine/pkg/trm"
	ws "github.com/Temutjin2k/driver-engine/pkg/wsHub"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Background tracking thresholds of the device feed.
const (
	trackInterval = 10 * time.Second
	trackDistance = 50.0
)

type intentStore interface {
	session.IntentStore
	availability.IntentStore
}

// DriverAgent runs the session engine of one driver.
type DriverAgent struct {
	postgresDB  *postgres.PostgreDB
	redisClient *goredis.Client
	rabbit      *rabbit.RabbitMQ
	kafkaSink   *kafka.LocationSink
	hub         *ws.ConnectionHub
	httpServer  *server.API

	engine   *session.Engine
	consumer *events.EventConsumer
	tracker  *sampler.Tracker

	cfg config.Config
	log logger.Logger
}

func NewDriverAgent(ctx context.Context, cfg config.Config, log logger.Logger) (*DriverAgent, error) {
	driverID, err := cfg.Driver.DriverUUID()
	if err != nil {
		return nil, err
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	a := &DriverAgent{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.close(ctx)
		}
	}()

	a.postgresDB, err = postgres.New(ctx, cfg.Database, postgres.WithPoolLimits(
		cfg.Database.MaxConns,
		cfg.Database.MinConns,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	))
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}
	pool := a.postgresDB.Pool

	store, err := a.intentStore(ctx, driverID)
	if err != nil {
		log.Error(ctx, "Failed to setup intent store", err)
		return nil, err
	}

	a.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to connect to rabbitmq", err)
		return nil, err
	}

	// Repositories
	profiles := repo.NewProfileRepo(pool)
	rides := repo.NewRideRepo(pool)
	offers := repo.NewOfferRepo(pool, trm.New(pool))
	ledger := repo.NewLedgerRepo(pool)

	var offerRides offer.RideRepo = rides
	if cfg.Geocoder.APIKey != "" {
		geo := locationIQ.New(cfg.Geocoder.APIKey, cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout)
		offerRides = locationIQ.NewRideAddresses(rides, geo, log)
	}

	// Outbound
	dispatch := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	var ingest sampler.Ingest = dispatch
	if cfg.Ingest.Sink == types.IngestKafka {
		a.kafkaSink = kafka.NewLocationSink(cfg.Kafka.Brokers, cfg.Kafka.LocationTopic)
		ingest = a.kafkaSink
	}

	a.hub = ws.NewConnHub(log)
	notifier := wshandler.NewNotifier(a.hub)

	// Location
	provider := device.NewProvider(device.Throttle{MinInterval: trackInterval, MinDistance: trackDistance}, log)
	samples := sampler.New(store, ingest, sampler.Config{
		BatchSize:     cfg.Ingest.BatchSize,
		FlushInterval: cfg.Ingest.FlushInterval,
		MaxBuffered:   cfg.Ingest.MaxBuffered,
		SendTimeout:   cfg.Ingest.SendTimeout,
	}, log)
	a.tracker = sampler.NewTracker(provider, samples, log)

	// Session
	a.engine = session.New(driverID, profiles, rides, store, notifier, log)

	avail := availability.New(
		driverID,
		store,
		a.tracker,
		provider,
		ingest,
		dispatch,
		profiles,
		a.engine,
		a.engine,
		availability.Config{
			DebtCeiling:     cfg.Balance.DebtCeiling,
			FreshFixTimeout: cfg.Location.FreshFixTimeout,
		},
		log,
	)
	lifecycle := ride.NewController(
		driverID,
		dispatch,
		rides,
		ledger,
		provider,
		a.engine,
		ride.Config{NoShowAfter: cfg.Ride.NoShowAfter},
		log,
	)
	offerCtrl := offer.NewController(
		driverID,
		offerRides,
		offers,
		dispatch,
		lifecycle,
		avail,
		a.engine,
		cfg.Offer.Countdown,
		log,
	)
	guard := balance.NewGuard(a.engine, offerCtrl, avail, a.engine, cfg.Balance.DebtCeiling, cfg.Balance.GuardInterval, log)

	a.engine.Attach(avail, offerCtrl, lifecycle, guard)

	a.consumer = events.NewEventConsumer(a.rabbit, cfg.RabbitMQ.Exchange, driverID, log)

	a.httpServer, err = server.New(cfg, driverID, a.engine, provider, a.hub, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *DriverAgent) intentStore(ctx context.Context, driverID uuid.UUID) (intentStore, error) {
	if a.cfg.Redis.Addr == "" {
		a.log.Warn(ctx, "redis address not set, online intent will not survive restarts")
		return intent.NewMemoryIntentStore(), nil
	}

	client, err := intent.NewClient(ctx, intent.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	return intent.NewIntentStore(client, driverID), nil
}

func (a *DriverAgent) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	if err := a.engine.Start(ctx); err != nil {
		a.close(ctx)
		return fmt.Errorf("failed to start driver session: %w", err)
	}

	consumeCtx, stopConsume := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.consumer.Consume(consumeCtx, a.engine.HandleEvent); err != nil && !errors.Is(err, rabbit.ErrClosed) {
			errCh <- fmt.Errorf("event consumer stopped: %w", err)
		}
	}()

	a.httpServer.Run(ctx, errCh)
	defer func() {
		stopConsume()
		wg.Wait()
		a.close(ctx)
		a.log.Info(ctx, "driver agent closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "driver agent started", "driver_id", a.engine.DriverID())

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

// close releases everything that was set up. Safe on a partially built agent.
func (a *DriverAgent) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.engine != nil {
		a.engine.Close()
	}

	// the engine keeps the online intent, only the local feed stops
	if a.tracker != nil {
		if err := a.tracker.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to stop location tracker", "error", err.Error())
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.rabbit != nil {
		if err := a.rabbit.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to close rabbitmq connection", "error", err.Error())
		}
	}

	if a.kafkaSink != nil {
		if err := a.kafkaSink.Close(); err != nil {
			a.log.Warn(ctx, "Failed to close kafka writer", "error", err.Error())
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn(ctx, "Failed to close redis client", "error", err.Error())
		}
	}

	if a.postgresDB != nil {
		a.postgresDB.Close()
	}
}
