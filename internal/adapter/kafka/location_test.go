package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestSendKeysByDriver(t *testing.T) {
	w := &fakeWriter{}
	sink := NewLocationSinkWithWriter(w)

	batch := models.LocationBatch{
		DriverID: uuid.New(),
		Locations: []models.LocationSample{
			{Lat: 36.75, Lng: 3.06, TimestampMs: 1700000000000},
			{Lat: 36.76, Lng: 3.07, TimestampMs: 1700000005000},
		},
	}
	if err := sink.Send(context.Background(), batch); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != batch.DriverID.String() {
		t.Fatalf("key = %s", w.msgs[0].Key)
	}

	var got models.LocationBatch
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.DriverID != batch.DriverID || len(got.Locations) != 2 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSendError(t *testing.T) {
	sink := NewLocationSinkWithWriter(&fakeWriter{err: errors.New("leader not available")})
	if err := sink.Send(context.Background(), models.LocationBatch{DriverID: uuid.New()}); err == nil {
		t.Fatalf("expected error")
	}
}
