package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	fieldDriverID = "driver_id"
	fieldOnline   = "online"
)

// IntentStore keeps the driver's online intent in a Redis hash so it
// survives agent restarts.
type IntentStore struct {
	client *goredis.Client
	key    string
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewIntentStore(client *goredis.Client, driverID uuid.UUID) *IntentStore {
	return &IntentStore{client: client, key: Key(driverID)}
}

func Key(driverID uuid.UUID) string {
	return "driver_session:" + driverID.String()
}

func (s *IntentStore) Load(ctx context.Context) (models.Intent, error) {
	const op = "IntentStore.Load"

	m, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return models.Intent{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return parseIntent(m)
}

func parseIntent(m map[string]string) (models.Intent, error) {
	var intent models.Intent

	if v, ok := m[fieldDriverID]; ok && v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return intent, fmt.Errorf("corrupt driver id %q: %w", v, err)
		}
		intent.DriverID = id
	}
	if v, ok := m[fieldOnline]; ok {
		online, err := strconv.ParseBool(v)
		if err != nil {
			return intent, fmt.Errorf("corrupt online flag %q: %w", v, err)
		}
		intent.Online = online
	}
	return intent, nil
}

func (s *IntentStore) SetOnline(ctx context.Context, online bool) error {
	const op = "IntentStore.SetOnline"

	if err := s.client.HSet(ctx, s.key, fieldOnline, strconv.FormatBool(online)).Err(); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (s *IntentStore) SetDriver(ctx context.Context, driverID uuid.UUID) error {
	const op = "IntentStore.SetDriver"
	if driverID == uuid.Nil {
		return types.ErrNoDriverID
	}

	if err := s.client.HSet(ctx, s.key, fieldDriverID, driverID.String()).Err(); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// Clear forgets the session on sign-out.
func (s *IntentStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("IntentStore.Clear: %w", err)
	}
	return nil
}
