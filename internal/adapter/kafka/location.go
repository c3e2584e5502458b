package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LocationSink publishes location batches to a Kafka topic keyed by driver
// id, so a driver's batches stay ordered within one partition.
type LocationSink struct {
	writer Writer
}

func NewLocationSink(brokers []string, topic string) *LocationSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &LocationSink{writer: w}
}

func NewLocationSinkWithWriter(w Writer) *LocationSink {
	return &LocationSink{writer: w}
}

func (s *LocationSink) Send(ctx context.Context, batch models.LocationBatch) error {
	const op = "LocationSink.Send"

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(batch.DriverID.String()),
		Value: body,
		Time:  time.Now(),
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (s *LocationSink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
