package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/driver-engine/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/internal/service/ride"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/validator"
)

type SessionService interface {
	Snapshot() models.Snapshot
	SetOnline(ctx context.Context, online bool) error
	Reconcile(ctx context.Context) (models.ReconcileResult, error)
	RefreshBalance(ctx context.Context) error
	SignOut(ctx context.Context) error

	AcceptOffer(ctx context.Context) (*models.Ride, error)
	DeclineOffer(ctx context.Context) error

	Arrive(ctx context.Context) error
	StartRide(ctx context.Context, code string) error
	CompleteRide(ctx context.Context, collected float64) (*models.Completion, error)
	CancelRide(ctx context.Context, reason types.CancelReason) error
	ChargeNoShow(ctx context.Context) error
}

// Session exposes the driver session commands.
type Session struct {
	service SessionService
	l       logger.Logger
}

func NewSession(service SessionService, l logger.Logger) *Session {
	return &Session{
		service: service,
		l:       l,
	}
}

// GetSession godoc
// @Summary      Session snapshot
// @Description  Returns availability, balance, the incoming offer and the active ride
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Router       /session [get]
func (h *Session) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_session")
	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// GoOnline godoc
// @Summary      Go online
// @Description  Checks balance and location, then flips the driver online and starts tracking
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      403  {object}  map[string]string "balance below debt ceiling"
// @Failure      424  {object}  map[string]string "location unavailable"
// @Router       /session/online [post]
func (h *Session) GoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionGoOnline)
	h.setOnline(ctx, w, true)
}

// GoOffline godoc
// @Summary      Go offline
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Router       /session/offline [post]
func (h *Session) GoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionGoOffline)
	h.setOnline(ctx, w, false)
}

func (h *Session) setOnline(ctx context.Context, w http.ResponseWriter, online bool) {
	if err := h.service.SetOnline(ctx, online); err != nil {
		h.fail(ctx, w, "failed to change availability", err)
		return
	}

	h.l.Info(ctx, "availability changed", "online", online)
	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// Reconcile godoc
// @Summary      Reconcile availability
// @Description  Aligns background tracking with the stored online intent, as on app foreground
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.ReconcileResult
// @Router       /session/reconcile [post]
func (h *Session) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionReconcile)

	res, err := h.service.Reconcile(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to reconcile availability", err)
		return
	}

	h.ok(ctx, w, envelope{"result": res})
}

// RefreshBalance godoc
// @Summary      Refresh balance
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Router       /session/balance/refresh [post]
func (h *Session) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionBalanceRefresh)

	if err := h.service.RefreshBalance(ctx); err != nil {
		h.fail(ctx, w, "failed to refresh balance", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// SignOut godoc
// @Summary      Sign out
// @Description  Goes offline and forgets the persisted session
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      409  {object}  map[string]string "driver already has an active ride"
// @Router       /session/sign-out [post]
func (h *Session) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionSignOut)

	if err := h.service.SignOut(ctx); err != nil {
		h.fail(ctx, w, "failed to sign out", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// AcceptOffer godoc
// @Summary      Accept the incoming offer
// @Tags         Offer
// @Produce      json
// @Success      200  {object}  models.Ride
// @Failure      409  {object}  map[string]string "ride no longer available"
// @Router       /offer/accept [post]
func (h *Session) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionOfferAccept)

	accepted, err := h.service.AcceptOffer(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to accept offer", err)
		return
	}

	ctx = wrap.WithRideID(ctx, accepted.ID.String())
	h.l.Info(ctx, "offer accepted")
	h.ok(ctx, w, envelope{"ride": accepted})
}

// DeclineOffer godoc
// @Summary      Decline the incoming offer
// @Tags         Offer
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Router       /offer/decline [post]
func (h *Session) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionOfferDecline)

	if err := h.service.DeclineOffer(ctx); err != nil {
		h.fail(ctx, w, "failed to decline offer", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// Arrive godoc
// @Summary      Mark arrival at pickup
// @Tags         Ride
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      502  {object}  map[string]string "status update failed"
// @Router       /ride/arrive [post]
func (h *Session) Arrive(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideArrive)

	if err := h.service.Arrive(ctx); err != nil {
		h.fail(ctx, w, "failed to mark arrival", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// StartRide godoc
// @Summary      Start the trip
// @Description  Requires the start code shown to the passenger
// @Tags         Ride
// @Accept       json
// @Produce      json
// @Param        request  body      dto.StartRideReq  true  "start code"
// @Success      200  {object}  models.Snapshot
// @Failure      422  {object}  map[string]string "wrong start code"
// @Router       /ride/start [post]
func (h *Session) StartRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideStart)

	var req dto.StartRideReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.service.StartRide(ctx, req.Code); err != nil {
		h.fail(ctx, w, "failed to start ride", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// CompleteRide godoc
// @Summary      Complete the trip
// @Description  Records the collected cash. A shortfall opens a payment dispute.
// @Tags         Ride
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CompleteRideReq  true  "collected amount"
// @Success      200  {object}  models.Completion
// @Router       /ride/complete [post]
func (h *Session) CompleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideComplete)

	var req dto.CompleteRideReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	collected, err := ride.ParseAmount(req.Collected.String())
	if err != nil {
		failedValidationResponse(w, map[string]string{"collected": "must be a non-negative amount"})
		return
	}

	completion, err := h.service.CompleteRide(ctx, collected)
	if err != nil {
		h.fail(ctx, w, "failed to complete ride", err)
		return
	}

	h.l.Info(ctx, "ride completed", "fare", completion.Fare, "collected", completion.Collected)
	h.ok(ctx, w, envelope{"completion": completion})
}

// CancelRide godoc
// @Summary      Cancel the active ride
// @Tags         Ride
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CancelRideReq  true  "reason"
// @Success      200  {object}  models.Snapshot
// @Router       /ride/cancel [post]
func (h *Session) CancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideCancel)

	var req dto.CancelRideReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.service.CancelRide(ctx, req.Reason); err != nil {
		h.fail(ctx, w, "failed to cancel ride", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

// ChargeNoShow godoc
// @Summary      Cancel for passenger no-show
// @Description  Available once the driver waited long enough at pickup
// @Tags         Ride
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      409  {object}  map[string]string "no-show is not available yet"
// @Router       /ride/no-show [post]
func (h *Session) ChargeNoShow(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideNoShow)

	if err := h.service.ChargeNoShow(ctx); err != nil {
		h.fail(ctx, w, "failed to charge no-show", err)
		return
	}

	h.ok(ctx, w, envelope{"session": h.service.Snapshot()})
}

func (h *Session) ok(ctx context.Context, w http.ResponseWriter, data envelope) {
	if err := writeJSON(w, http.StatusOK, data, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

func (h *Session) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := GetCode(err)
	if code >= http.StatusInternalServerError {
		h.l.Error(wrap.ErrorCtx(ctx, err), msg, err)
	} else {
		h.l.Warn(wrap.ErrorCtx(ctx, err), msg, "error", err)
	}
	errorResponse(w, code, err.Error())
}
