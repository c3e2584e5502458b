package config

import (
	"context"
	"strings"

	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
)

const HelpMessage = `Driver session engine.

Usage:
  driver --mode <driver-agent|offer-sweeper> [--config-path config.yaml]

Modes:
  driver-agent    runs the session engine of one driver (DRIVER_ID) with its control API
  offer-sweeper   periodically releases ride offers whose countdown has passed

Flags:
`

// PrintConfig logs the effective configuration with secrets masked.
func PrintConfig(cfg *Config, log logger.Logger) {
	ctx := wrap.WithAction(context.Background(), "print_config")
	log.Info(ctx, "configuration",
		"mode", cfg.Mode,
		"driver_id", cfg.Driver.ID,
		"database", cfg.Database.Host+":"+cfg.Database.Port+"/"+cfg.Database.Database,
		"database_password", mask(cfg.Database.Password),
		"redis", cfg.Redis.Addr,
		"rabbitmq", cfg.RabbitMQ.Host+":"+cfg.RabbitMQ.Port,
		"kafka_brokers", strings.Join(cfg.Kafka.Brokers, ","),
		"backend", cfg.Backend.BaseURL,
		"ingest_sink", cfg.Ingest.Sink,
		"ingest_batch_size", cfg.Ingest.BatchSize,
		"ingest_flush_interval", cfg.Ingest.FlushInterval,
		"offer_countdown", cfg.Offer.Countdown,
		"no_show_after", cfg.Ride.NoShowAfter,
		"debt_ceiling", cfg.Balance.DebtCeiling,
		"http_port", cfg.HTTP.Port,
		"jwt_secret", mask(cfg.Auth.JWTSecret),
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
