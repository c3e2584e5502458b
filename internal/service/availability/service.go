package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/google/uuid"
)

type Config struct {
	DebtCeiling     float64
	FreshFixTimeout time.Duration
}

// Service owns the online flag of the session and keeps the tracker
// consistent with the driver's persisted intent.
type Service struct {
	driverID uuid.UUID
	intent   IntentStore
	tracker  Tracker
	location LocationSource
	ingest   Ingest
	dispatch Dispatch
	profiles ProfileRepo
	balance  BalanceSource
	notifier Notifier
	cfg      Config
	l        logger.Logger

	// serialises toggles, reconciliation and forced offline
	opMu sync.Mutex

	mu       sync.RWMutex
	online   bool
	toggle   models.Toggle
	onChange func(ctx context.Context, online bool)
}

func New(
	driverID uuid.UUID,
	intent IntentStore,
	tracker Tracker,
	location LocationSource,
	ingest Ingest,
	dispatch Dispatch,
	profiles ProfileRepo,
	balance BalanceSource,
	notifier Notifier,
	cfg Config,
	l logger.Logger,
) *Service {
	return &Service{
		driverID: driverID,
		intent:   intent,
		tracker:  tracker,
		location: location,
		ingest:   ingest,
		dispatch: dispatch,
		profiles: profiles,
		balance:  balance,
		notifier: notifier,
		cfg:      cfg,
		l:        l,
	}
}

// OnChange registers fn to be called whenever the online flag changes.
func (s *Service) OnChange(fn func(ctx context.Context, online bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Service) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *Service) Toggle() models.Toggle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toggle
}

func (s *Service) setOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	fn := s.onChange
	s.mu.Unlock()

	metrics.SetOnline(online)
	if changed && fn != nil {
		fn(ctx, online)
	}
}

func (s *Service) setToggle(target bool, state types.MutationState) {
	s.mu.Lock()
	s.toggle = models.Toggle{Target: target, State: state}
	s.mu.Unlock()

	if state != types.MutationPending {
		metrics.ToggleTotal.WithLabelValues(fmt.Sprint(target), string(state)).Inc()
	}
}

// SetOnline switches availability. The flag is flipped before any side
// effect and rolled back if one of them fails.
func (s *Service) SetOnline(ctx context.Context, target bool) error {
	const op = "Availability.SetOnline"
	if target {
		ctx = wrap.WithAction(ctx, types.ActionGoOnline)
	} else {
		ctx = wrap.WithAction(ctx, types.ActionGoOffline)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if target {
		if balance := s.balance.Balance(); balance < s.cfg.DebtCeiling {
			s.l.Warn(ctx, "going online rejected, balance below debt ceiling", "balance", balance, "ceiling", s.cfg.DebtCeiling)
			s.notifier.Notify(ctx, models.Notice{
				Kind:     types.NoticeLowBalance,
				Blocking: true,
				Title:    "Low balance",
				Message:  fmt.Sprintf("Your balance is %.0f. Settle your debt to go online.", balance),
				Data:     map[string]any{"balance": balance, "ceiling": s.cfg.DebtCeiling},
			})
			return types.ErrLowBalance
		}
	}

	s.setToggle(target, types.MutationPending)
	s.setOnline(ctx, target)

	var err error
	if target {
		err = s.goOnline(ctx)
	} else {
		err = s.goOffline(ctx)
	}

	if err == nil {
		err = s.profiles.SetOnline(ctx, s.driverID, target)
		if err != nil {
			err = fmt.Errorf("update profile: %w", err)
		}
	}

	if err != nil {
		s.rollback(ctx, target, err)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	s.setToggle(target, types.MutationConfirmed)
	s.l.Info(ctx, "availability changed", "online", target)
	return nil
}

func (s *Service) goOnline(ctx context.Context) error {
	if err := s.intent.SetOnline(ctx, true); err != nil {
		return fmt.Errorf("persist intent: %w", err)
	}
	if err := s.tracker.Start(ctx); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	fix, err := s.locate(ctx)
	if err != nil {
		return err
	}

	batch := models.LocationBatch{DriverID: s.driverID, Locations: []models.LocationSample{fix}}
	if err := s.ingest.Send(ctx, batch); err != nil {
		s.l.Warn(ctx, "failed to push initial location", "error", err.Error())
	}
	return nil
}

func (s *Service) goOffline(ctx context.Context) error {
	if err := s.intent.SetOnline(ctx, false); err != nil {
		return fmt.Errorf("persist intent: %w", err)
	}
	if err := s.tracker.Stop(ctx); err != nil {
		s.l.Warn(ctx, "tracker did not stop cleanly", "error", err.Error())
	}
	if err := s.dispatch.GoOffline(ctx, s.driverID); err != nil {
		s.l.Warn(ctx, "dispatch go-offline failed", "error", err.Error())
	}
	return nil
}

// locate returns a fresh fix, or the last known one if no fresh fix arrives
// within the timeout.
func (s *Service) locate(ctx context.Context) (models.LocationSample, error) {
	if !s.location.ServicesEnabled(ctx) {
		return models.LocationSample{}, types.ErrLocationServicesDisabled
	}

	fix, err := s.location.Current(ctx, s.cfg.FreshFixTimeout)
	if err == nil {
		return fix, nil
	}
	s.l.Debug(ctx, "no fresh location fix, falling back to last known", "error", err.Error())

	if last, ok := s.location.LastKnown(ctx); ok {
		return last, nil
	}
	return models.LocationSample{}, types.ErrNoLocationFix
}

// rollback restores the state from before a failed toggle. Intent and
// tracker are restored best-effort.
func (s *Service) rollback(ctx context.Context, target bool, cause error) {
	s.l.Error(ctx, "availability change failed, rolling back", cause, "target", target)

	s.setOnline(ctx, !target)
	s.setToggle(target, types.MutationRolledBack)

	if err := s.intent.SetOnline(ctx, !target); err != nil {
		s.l.Warn(ctx, "failed to restore intent", "error", err.Error())
	}
	var err error
	if target {
		err = s.tracker.Stop(ctx)
	} else {
		err = s.tracker.Start(ctx)
	}
	if err != nil {
		s.l.Warn(ctx, "failed to restore tracker", "error", err.Error())
	}

	notice := models.Notice{
		Kind:     types.NoticeConnectionError,
		Blocking: true,
		Title:    "Connection Error",
		Message:  "Could not update your status. Check your connection and try again.",
	}
	if errors.Is(cause, types.ErrLocationServicesDisabled) {
		notice.Kind = types.NoticeLocationError
		notice.Title = "Location Error"
		notice.Message = "Location services are disabled. Enable them to go online."
	} else if errors.Is(cause, types.ErrLocationUnavailable) {
		notice.Kind = types.NoticeLocationError
		notice.Title = "Location Error"
		notice.Message = "Could not determine your location. Try again outdoors."
	}
	s.notifier.Notify(ctx, notice)
}

// ForceOffline takes the driver offline without rollback. Failures of the
// individual steps are logged and the driver stays offline.
func (s *Service) ForceOffline(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionForceOffline)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setOnline(ctx, false)

	if err := s.goOffline(ctx); err != nil {
		s.l.Error(ctx, "force offline: intent not persisted", err)
	}
	if err := s.profiles.SetOnline(ctx, s.driverID, false); err != nil {
		s.l.Error(ctx, "force offline: profile not updated", err)
	}

	s.setToggle(false, types.MutationConfirmed)
	s.l.Warn(ctx, "driver forced offline")
}

// EnsureOnline marks the session online and starts tracking without the
// checks of SetOnline. Used when an active ride is resumed at startup.
func (s *Service) EnsureOnline(ctx context.Context) error {
	const op = "Availability.EnsureOnline"

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.intent.SetOnline(ctx, true); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if err := s.tracker.Start(ctx); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	s.setOnline(ctx, true)
	return nil
}
