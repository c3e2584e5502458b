package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/driver-engine/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/validator"
)

type (
	// LocationDevice receives fixes and the location switch from the phone.
	LocationDevice interface {
		Push(ctx context.Context, samples ...models.LocationSample) error
		SetServicesEnabled(enabled bool)
		ServicesEnabled(ctx context.Context) bool
	}

	Reconciler interface {
		Reconcile(ctx context.Context) (models.ReconcileResult, error)
	}
)

type Location struct {
	device     LocationDevice
	reconciler Reconciler
	l          logger.Logger
}

func NewLocation(device LocationDevice, reconciler Reconciler, l logger.Logger) *Location {
	return &Location{
		device:     device,
		reconciler: reconciler,
		l:          l,
	}
}

// PushSamples godoc
// @Summary      Push device location fixes
// @Tags         Location
// @Accept       json
// @Produce      json
// @Param        request  body      dto.PushLocationReq  true  "fixes"
// @Success      202  {object}  map[string]int
// @Failure      424  {object}  map[string]string "location services disabled"
// @Router       /location/samples [post]
func (h *Location) PushSamples(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "location_push")

	var req dto.PushLocationReq
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

	samples := req.ToModel()
	if err := h.device.Push(ctx, samples...); err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "location fixes rejected", "error", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusAccepted, envelope{"accepted": len(samples)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// SetServices godoc
// @Summary      Report the device location switch
// @Description  Switching services re-runs availability reconciliation
// @Tags         Location
// @Accept       json
// @Produce      json
// @Param        request  body      dto.LocationServicesReq  true  "switch"
// @Success      200  {object}  models.ReconcileResult
// @Router       /location/services [put]
func (h *Location) SetServices(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "location_services")

	var req dto.LocationServicesReq
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

	h.device.SetServicesEnabled(*req.Enabled)
	h.l.Info(ctx, "location services switched", "enabled", *req.Enabled)

	res, err := h.reconciler.Reconcile(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to reconcile availability", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"enabled": h.device.ServicesEnabled(ctx),
		"result":  res,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}
