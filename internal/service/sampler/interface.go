package sampler

import (
	"context"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
)

type (
	// IntentStore is the durable record of driver id and online intent.
	IntentStore interface {
		Load(ctx context.Context) (models.Intent, error)
	}

	// Ingest delivers a batch of samples to the location backend.
	Ingest interface {
		Send(ctx context.Context, batch models.LocationBatch) error
	}

	// Provider is the device position feed. The channel is closed when the
	// feed stops, whether ctx was cancelled or the device killed it.
	Provider interface {
		Subscribe(ctx context.Context) (<-chan models.LocationSample, error)
	}

	// SampleSink receives samples forwarded by the tracker.
	SampleSink interface {
		OnSample(ctx context.Context, samples ...models.LocationSample) error
	}
)
