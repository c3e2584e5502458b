package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/configparser"
	"github.com/google/uuid"
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrInvalidDriverID = errors.New("driver id must be a valid uuid")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode     types.ServiceMode
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		Driver   DriverConfig
		Database DatabaseConfig
		Redis    RedisConfig
		RabbitMQ RabbitMQConfig
		Kafka    KafkaConfig
		Backend  BackendConfig
		Geocoder GeocoderConfig
		Ingest   IngestConfig
		Offer    OfferConfig
		Ride     RideConfig
		Balance  BalanceConfig
		Location LocationConfig
		Sweeper  SweeperConfig
		HTTP     HTTPConfig
		Auth     AuthConfig
	}

	DriverConfig struct {
		// ID of the driver signed in on this agent. Required in driver-agent mode.
		ID string `env:"DRIVER_ID"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ridehail_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ridehail_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ridehail_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"10"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"1"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RedisConfig struct {
		// Empty address keeps the intent in process memory.
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		Exchange string `env:"RABBITMQ_EXCHANGE" default:"ride_events"`
	}

	KafkaConfig struct {
		Brokers       []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
		LocationTopic string   `env:"KAFKA_LOCATION_TOPIC" default:"driver-locations"`
	}

	BackendConfig struct {
		BaseURL string        `env:"BACKEND_BASE_URL" default:"http://localhost:3000"`
		Timeout time.Duration `env:"BACKEND_TIMEOUT" default:"10s"`
	}

	GeocoderConfig struct {
		// Empty key leaves missing ride addresses blank.
		APIKey  string        `env:"LOCATIONIQ_API_KEY"`
		BaseURL string        `env:"LOCATIONIQ_BASE_URL"`
		Timeout time.Duration `env:"LOCATIONIQ_TIMEOUT" default:"5s"`
	}

	IngestConfig struct {
		Sink          types.IngestSink `env:"INGEST_SINK" default:"http"`
		BatchSize     int              `env:"INGEST_BATCH_SIZE" default:"5"`
		FlushInterval time.Duration    `env:"INGEST_FLUSH_INTERVAL" default:"30s"`
		MaxBuffered   int              `env:"INGEST_MAX_BUFFERED" default:"50"`
		SendTimeout   time.Duration    `env:"INGEST_SEND_TIMEOUT" default:"10s"`
	}

	OfferConfig struct {
		Countdown time.Duration `env:"OFFER_COUNTDOWN" default:"300s"`
	}

	RideConfig struct {
		NoShowAfter time.Duration `env:"RIDE_NO_SHOW_AFTER" default:"5m"`
	}

	BalanceConfig struct {
		DebtCeiling   float64       `env:"BALANCE_DEBT_CEILING" default:"-2000"`
		GuardInterval time.Duration `env:"BALANCE_GUARD_INTERVAL" default:"1m"`
	}

	LocationConfig struct {
		FreshFixTimeout time.Duration `env:"LOCATION_FRESH_FIX_TIMEOUT" default:"5s"`
	}

	SweeperConfig struct {
		Interval time.Duration `env:"SWEEPER_INTERVAL" default:"15s"`
	}

	HTTPConfig struct {
		Port string `env:"HTTP_PORT" default:"3010"`
	}

	AuthConfig struct {
		// Empty secret disables bearer token checks on the control API.
		JWTSecret string `env:"AUTH_JWT_SECRET"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// DriverUUID parses the configured driver id.
func (c DriverConfig) DriverUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidDriverID
	}
	return id, nil
}

// NewConfig loads the YAML file at filepath into the environment and parses
// the result. mode comes from the command line.
func NewConfig(filepath, mode string) (*Config, error) {
	cfg := &Config{}

	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := applyMode(cfg, mode); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyMode(cfg *Config, mode string) error {
	if mode == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(mode)
	if !cfg.Mode.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}

	return nil
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	if c.Mode == types.DriverAgent {
		if _, err := c.Driver.DriverUUID(); err != nil {
			return err
		}
		if c.Ingest.Sink != types.IngestHTTP && c.Ingest.Sink != types.IngestKafka {
			return fmt.Errorf("invalid ingest sink: %s", c.Ingest.Sink)
		}
	}
	if c.Ingest.BatchSize <= 0 || c.Ingest.MaxBuffered < c.Ingest.BatchSize {
		return errors.New("ingest batch size must be positive and not exceed max buffered")
	}
	if c.Offer.Countdown <= 0 {
		return errors.New("offer countdown must be positive")
	}
	return nil
}
