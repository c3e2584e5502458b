package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
)

type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	MaxBuffered   int
	SendTimeout   time.Duration
}

// Sampler buffers location samples and flushes them as one batch once the
// buffer holds BatchSize samples or FlushInterval has passed since the last
// successful flush. Only one flush is in flight at a time.
type Sampler struct {
	intent IntentStore
	ingest Ingest
	cfg    Config
	log    logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	buf       []models.LocationSample
	lastFlush time.Time
	flushing  bool
	gen       uint64 // bumped by Reset so an in-flight flush does not touch a new buffer
}

func New(intent IntentStore, ingest Ingest, cfg Config, log logger.Logger) *Sampler {
	s := &Sampler{
		intent: intent,
		ingest: ingest,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
	s.lastFlush = s.now()
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *Sampler) WithClock(now func() time.Time) *Sampler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.lastFlush = now()
	return s
}

// OnSample appends samples to the buffer when the driver intends to be
// online and flushes if a threshold is met. With no signed-in driver or an
// offline intent the buffer is cleared and the samples are ignored.
func (s *Sampler) OnSample(ctx context.Context, samples ...models.LocationSample) error {
	const op = "Sampler.OnSample"

	intent, err := s.intent.Load(ctx)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: load intent: %w", op, err))
	}

	if !intent.HasDriver() || !intent.Online {
		s.Reset()
		return nil
	}

	s.mu.Lock()
	s.buf = append(s.buf, samples...)
	if s.flushing || !s.due(s.now()) {
		s.mu.Unlock()
		return nil
	}

	batch := make([]models.LocationSample, len(s.buf))
	copy(batch, s.buf)
	gen := s.gen
	s.flushing = true
	s.mu.Unlock()

	err = s.send(ctx, models.LocationBatch{DriverID: intent.DriverID, Locations: batch})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushing = false
	metrics.RecordLocationBatch(err)

	if gen != s.gen {
		return err
	}

	if err != nil {
		if len(s.buf) > s.cfg.MaxBuffered {
			metrics.LocationSamplesDropped.Add(float64(len(s.buf)))
			s.log.Warn(ctx, "location buffer overflow, dropping samples", "dropped", len(s.buf))
			s.buf = nil
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	// samples appended during the flush stay buffered
	rest := make([]models.LocationSample, len(s.buf)-len(batch))
	copy(rest, s.buf[len(batch):])
	s.buf = rest
	s.lastFlush = s.now()

	return nil
}

func (s *Sampler) due(now time.Time) bool {
	if len(s.buf) == 0 {
		return false
	}
	return len(s.buf) >= s.cfg.BatchSize || now.Sub(s.lastFlush) > s.cfg.FlushInterval
}

func (s *Sampler) send(ctx context.Context, batch models.LocationBatch) error {
	ctx = wrap.WithAction(ctx, types.ActionLocationFlush)
	if s.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
	}

	if err := s.ingest.Send(ctx, batch); err != nil {
		s.log.Error(ctx, "failed to flush location batch", err, "size", len(batch.Locations))
		return err
	}

	s.log.Debug(ctx, "location batch flushed", "size", len(batch.Locations))
	return nil
}

// Reset discards buffered samples.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.gen++
}

// Len returns the number of buffered samples.
func (s *Sampler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
