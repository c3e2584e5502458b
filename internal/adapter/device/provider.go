package device

import (
	"context"
	"sync"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
)

// Throttle filters the background feed. A sample is forwarded once both
// MinInterval has passed and the driver moved MinDistance meters since the
// last forwarded one. Zero values disable the respective check.
type Throttle struct {
	MinInterval time.Duration
	MinDistance float64
}

const feedBuffer = 16

// Provider is the device location source. Fixes are pushed in through the
// control API and fanned out to the tracker and to callers waiting for a
// fresh fix.
type Provider struct {
	throttle Throttle
	l        logger.Logger

	mu        sync.Mutex
	enabled   bool
	last      *models.LocationSample
	forwarded *models.LocationSample
	feed      chan models.LocationSample
	feedStop  context.CancelFunc
	waiters   []chan models.LocationSample
}

func NewProvider(throttle Throttle, l logger.Logger) *Provider {
	return &Provider{
		throttle: throttle,
		l:        l,
		enabled:  true,
	}
}

// Push records fixes reported by the device.
func (p *Provider) Push(ctx context.Context, samples ...models.LocationSample) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return types.ErrLocationServicesDisabled
	}

	for _, s := range samples {
		s := s
		p.last = &s

		for _, w := range p.waiters {
			w <- s
		}
		p.waiters = nil

		if p.feed == nil || !p.passLocked(s) {
			continue
		}
		select {
		case p.feed <- s:
			p.forwarded = &s
		default:
			p.l.Warn(ctx, "location feed full, sample dropped")
		}
	}
	return nil
}

func (p *Provider) passLocked(s models.LocationSample) bool {
	prev := p.forwarded
	if prev == nil {
		return true
	}
	if p.throttle.MinInterval > 0 && s.Time().Sub(prev.Time()) < p.throttle.MinInterval {
		return false
	}
	if p.throttle.MinDistance > 0 && distanceMeters(prev.Lat, prev.Lng, s.Lat, s.Lng) < p.throttle.MinDistance {
		return false
	}
	return true
}

// SetServicesEnabled reports the device location switch. Turning it off
// kills the background feed, like the OS does.
func (p *Provider) SetServicesEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enabled = enabled
	if !enabled {
		p.closeFeedLocked()
	}
}

func (p *Provider) ServicesEnabled(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Subscribe opens the background feed. The channel is closed when ctx is
// done, when location services are switched off, or when a new subscriber
// replaces it.
func (p *Provider) Subscribe(ctx context.Context) (<-chan models.LocationSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return nil, types.ErrLocationServicesDisabled
	}
	p.closeFeedLocked()

	feed := make(chan models.LocationSample, feedBuffer)
	subCtx, stop := context.WithCancel(ctx)
	p.feed = feed
	p.feedStop = stop
	p.forwarded = nil

	go func() {
		<-subCtx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.feed == feed {
			p.feed = nil
			p.feedStop = nil
			close(feed)
		}
	}()

	return feed, nil
}

func (p *Provider) closeFeedLocked() {
	if p.feed == nil {
		return
	}
	close(p.feed)
	p.feed = nil
	if p.feedStop != nil {
		p.feedStop()
		p.feedStop = nil
	}
}

// Current waits up to timeout for the next fix.
func (p *Provider) Current(ctx context.Context, timeout time.Duration) (models.LocationSample, error) {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return models.LocationSample{}, types.ErrLocationServicesDisabled
	}
	w := make(chan models.LocationSample, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-w:
		return s, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	p.removeWaiter(w)
	// a fix may have landed between the timeout and the removal
	select {
	case s := <-w:
		return s, nil
	default:
		return models.LocationSample{}, types.ErrNoLocationFix
	}
}

func (p *Provider) removeWaiter(w chan models.LocationSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, x := range p.waiters {
		if x == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

func (p *Provider) LastKnown(context.Context) (models.LocationSample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return models.LocationSample{}, false
	}
	return *p.last, true
}
