package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/google/uuid"
)

type fakeSession struct {
	err       error
	online    *bool
	code      string
	collected float64
	reason    types.CancelReason
	calls     []string
}

func (f *fakeSession) Snapshot() models.Snapshot {
	return models.Snapshot{Session: models.DriverSession{IsOnline: f.online != nil && *f.online}}
}

func (f *fakeSession) SetOnline(_ context.Context, online bool) error {
	f.calls = append(f.calls, "online")
	if f.err != nil {
		return f.err
	}
	f.online = &online
	return nil
}

func (f *fakeSession) Reconcile(context.Context) (models.ReconcileResult, error) {
	f.calls = append(f.calls, "reconcile")
	return models.ReconcileResult{Action: types.ReconcileNone}, f.err
}

func (f *fakeSession) RefreshBalance(context.Context) error {
	f.calls = append(f.calls, "balance")
	return f.err
}

func (f *fakeSession) SignOut(context.Context) error {
	f.calls = append(f.calls, "sign-out")
	return f.err
}

func (f *fakeSession) AcceptOffer(context.Context) (*models.Ride, error) {
	f.calls = append(f.calls, "accept")
	if f.err != nil {
		return nil, f.err
	}
	return &models.Ride{ID: uuid.New(), Status: types.RideAccepted}, nil
}

func (f *fakeSession) DeclineOffer(context.Context) error {
	f.calls = append(f.calls, "decline")
	return f.err
}

func (f *fakeSession) Arrive(context.Context) error {
	f.calls = append(f.calls, "arrive")
	return f.err
}

func (f *fakeSession) StartRide(_ context.Context, code string) error {
	f.calls = append(f.calls, "start")
	f.code = code
	return f.err
}

func (f *fakeSession) CompleteRide(_ context.Context, collected float64) (*models.Completion, error) {
	f.calls = append(f.calls, "complete")
	if f.err != nil {
		return nil, f.err
	}
	f.collected = collected
	return &models.Completion{Fare: 1000, Collected: collected}, nil
}

func (f *fakeSession) CancelRide(_ context.Context, reason types.CancelReason) error {
	f.calls = append(f.calls, "cancel")
	f.reason = reason
	return f.err
}

func (f *fakeSession) ChargeNoShow(context.Context) error {
	f.calls = append(f.calls, "noshow")
	return f.err
}

func serve(h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestGoOnline(t *testing.T) {
	svc := &fakeSession{}
	h := NewSession(svc, logger.Discard())

	rec := serve(h.GoOnline, http.MethodPost, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Session models.Snapshot `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Session.Session.IsOnline {
		t.Fatalf("snapshot not online")
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrLowBalance, http.StatusForbidden},
		{types.ErrNoLocationFix, http.StatusFailedDependency},
		{types.ErrOfferUnavailable, http.StatusConflict},
		{fmt.Errorf("accept: %w", types.ErrActiveRideExists), http.StatusConflict},
		{types.ErrDriverOffline, http.StatusConflict},
		{types.ErrWrongCode, http.StatusUnprocessableEntity},
		{types.ErrAmountChanged, http.StatusUnprocessableEntity},
		{types.ErrStatusUpdateFailed, http.StatusBadGateway},
		{types.ErrRideNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewSession(&fakeSession{err: tt.err}, logger.Discard())
			rec := serve(h.GoOnline, http.MethodPost, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStartRide(t *testing.T) {
	svc := &fakeSession{}
	h := NewSession(svc, logger.Discard())

	if rec := serve(h.StartRide, http.MethodPost, `{"code":"12a4"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non digit code: status = %d", rec.Code)
	}
	if rec := serve(h.StartRide, http.MethodPost, `{"pin":"1234"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d", rec.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service called on invalid input: %v", svc.calls)
	}

	if rec := serve(h.StartRide, http.MethodPost, `{"code":"1234"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.code != "1234" {
		t.Fatalf("code = %q", svc.code)
	}
}

func TestCompleteRide(t *testing.T) {
	svc := &fakeSession{}
	h := NewSession(svc, logger.Discard())

	if rec := serve(h.CompleteRide, http.MethodPost, `{"collected":-5}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative amount: status = %d", rec.Code)
	}
	if rec := serve(h.CompleteRide, http.MethodPost, `{}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing amount: status = %d", rec.Code)
	}

	rec := serve(h.CompleteRide, http.MethodPost, `{"collected":750.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if svc.collected != 750.5 {
		t.Fatalf("collected = %v", svc.collected)
	}
}

func TestCancelRide(t *testing.T) {
	svc := &fakeSession{}
	h := NewSession(svc, logger.Discard())

	if rec := serve(h.CancelRide, http.MethodPost, `{"reason":"NO_SHOW"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("manual no-show: status = %d", rec.Code)
	}

	if rec := serve(h.CancelRide, http.MethodPost, `{"reason":"CAR_ISSUE"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.reason != types.CancelCarIssue {
		t.Fatalf("reason = %s", svc.reason)
	}
}

func TestAcceptOffer(t *testing.T) {
	h := NewSession(&fakeSession{err: types.ErrOfferUnavailable}, logger.Discard())

	rec := serve(h.AcceptOffer, http.MethodPost, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ride no longer available") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestSignOut(t *testing.T) {
	svc := &fakeSession{}
	h := NewSession(svc, logger.Discard())

	if rec := serve(h.SignOut, http.MethodPost, ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.calls) != 1 || svc.calls[0] != "sign-out" {
		t.Fatalf("calls = %v", svc.calls)
	}

	h = NewSession(&fakeSession{err: types.ErrActiveRideExists}, logger.Discard())
	if rec := serve(h.SignOut, http.MethodPost, ""); rec.Code != http.StatusConflict {
		t.Fatalf("sign-out during a ride: status = %d", rec.Code)
	}
}

type fakeDevice struct {
	enabled bool
	pushed  []models.LocationSample
}

func (f *fakeDevice) Push(_ context.Context, samples ...models.LocationSample) error {
	if !f.enabled {
		return types.ErrLocationServicesDisabled
	}
	f.pushed = append(f.pushed, samples...)
	return nil
}

func (f *fakeDevice) SetServicesEnabled(enabled bool) { f.enabled = enabled }

func (f *fakeDevice) ServicesEnabled(context.Context) bool { return f.enabled }

func TestPushSamples(t *testing.T) {
	dev := &fakeDevice{enabled: true}
	h := NewLocation(dev, &fakeSession{}, logger.Discard())

	body := `{"locations":[{"latitude":36.75,"longitude":3.06,"timestamp":1700000000000}]}`
	if rec := serve(h.PushSamples, http.MethodPost, body); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if len(dev.pushed) != 1 || dev.pushed[0].Lat != 36.75 {
		t.Fatalf("pushed = %+v", dev.pushed)
	}

	bad := `{"locations":[{"latitude":91,"longitude":3.06,"timestamp":1}]}`
	if rec := serve(h.PushSamples, http.MethodPost, bad); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad latitude: status = %d", rec.Code)
	}

	dev.enabled = false
	if rec := serve(h.PushSamples, http.MethodPost, body); rec.Code != http.StatusFailedDependency {
		t.Fatalf("disabled: status = %d", rec.Code)
	}
}

func TestSetServicesReconciles(t *testing.T) {
	dev := &fakeDevice{enabled: true}
	svc := &fakeSession{}
	h := NewLocation(dev, svc, logger.Discard())

	rec := serve(h.SetServices, http.MethodPut, `{"enabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if dev.enabled {
		t.Fatalf("services still enabled")
	}
	if len(svc.calls) != 1 || svc.calls[0] != "reconcile" {
		t.Fatalf("calls = %v", svc.calls)
	}
}
