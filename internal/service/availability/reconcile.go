package availability

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
)

// Decide maps persisted intent and tracker liveness to the repair action.
//
//	intent   running  action
//	online   no       start tracking
//	offline  yes      stop tracking
//	online   yes      none
//	offline  no       none
func Decide(intentOnline, running bool) types.ReconcileAction {
	switch {
	case intentOnline && !running:
		return types.ReconcileStartTracking
	case !intentOnline && running:
		return types.ReconcileStopTracking
	default:
		return types.ReconcileNone
	}
}

// Reconcile brings the tracker in line with the persisted intent. The
// session online flag follows the intent, never the tracker.
func (s *Service) Reconcile(ctx context.Context) (models.ReconcileResult, error) {
	const op = "Availability.Reconcile"
	ctx = wrap.WithAction(ctx, types.ActionReconcile)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	intent, err := s.intent.Load(ctx)
	if err != nil {
		return models.ReconcileResult{}, wrap.Error(ctx, fmt.Errorf("%s: load intent: %w", op, err))
	}
	wantOnline := intent.HasDriver() && intent.Online

	res := models.ReconcileResult{
		Intent:     wantOnline,
		WasRunning: s.tracker.IsRunning(),
	}
	res.Action = Decide(res.Intent, res.WasRunning)

	switch res.Action {
	case types.ReconcileStartTracking:
		s.l.Warn(ctx, "intent is online but tracking is dead, restarting")
		if err := s.tracker.Start(ctx); err != nil {
			return res, wrap.Error(ctx, fmt.Errorf("%s: start tracker: %w", op, err))
		}
	case types.ReconcileStopTracking:
		s.l.Warn(ctx, "intent is offline but tracking is running, stopping")
		if err := s.tracker.Stop(ctx); err != nil {
			return res, wrap.Error(ctx, fmt.Errorf("%s: stop tracker: %w", op, err))
		}
	}

	metrics.ReconcileActionsTotal.WithLabelValues(string(res.Action)).Inc()
	s.setOnline(ctx, wantOnline)

	s.l.Info(ctx, "availability reconciled", "intent", res.Intent, "was_running", res.WasRunning, "action", res.Action)
	return res, nil
}
