package sampler

import (
	"context"
	"fmt"
	"sync"

	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
)

// Tracker is the background sampling process. While running it forwards
// every device sample to the sink. It stops on Stop or when the device feed
// closes, which is how a killed background task shows up.
type Tracker struct {
	provider Provider
	sink     SampleSink
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTracker(provider Provider, sink SampleSink, log logger.Logger) *Tracker {
	return &Tracker{
		provider: provider,
		sink:     sink,
		log:      log,
	}
}

// Start launches the sampling goroutine. Starting a running tracker is a
// no-op. The goroutine outlives ctx; only Stop or the feed ends it.
func (t *Tracker) Start(ctx context.Context) error {
	const op = "Tracker.Start"

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runningLocked() {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx = wrap.WithAction(runCtx, types.ActionTrackerRun)

	feed, err := t.provider.Subscribe(runCtx)
	if err != nil {
		cancel()
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go func() {
		defer close(done)
		defer cancel()

		t.log.Info(runCtx, "location tracking started")
		for sample := range feed {
			if err := t.sink.OnSample(runCtx, sample); err != nil {
				t.log.Warn(runCtx, "location sample not delivered", "error", err.Error())
			}
		}
		t.log.Info(runCtx, "location tracking stopped")
	}()

	return nil
}

// Stop ends the sampling goroutine and waits for it to exit.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the sampling goroutine is alive.
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runningLocked()
}

func (t *Tracker) runningLocked() bool {
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
