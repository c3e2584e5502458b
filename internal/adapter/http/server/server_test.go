package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Temutjin2k/driver-engine/config"
	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	ws "github.com/Temutjin2k/driver-engine/pkg/wsHub"
	"github.com/google/uuid"
)

type stubSession struct {
	arrived bool
}

func (s *stubSession) Snapshot() models.Snapshot                            { return models.Snapshot{} }
func (s *stubSession) SetOnline(context.Context, bool) error                { return nil }
func (s *stubSession) RefreshBalance(context.Context) error                 { return nil }
func (s *stubSession) SignOut(context.Context) error                        { return nil }
func (s *stubSession) DeclineOffer(context.Context) error                   { return nil }
func (s *stubSession) StartRide(context.Context, string) error              { return nil }
func (s *stubSession) CancelRide(context.Context, types.CancelReason) error { return nil }
func (s *stubSession) ChargeNoShow(context.Context) error                   { return types.ErrNoShowNotAvailable }

func (s *stubSession) Reconcile(context.Context) (models.ReconcileResult, error) {
	return models.ReconcileResult{}, nil
}

func (s *stubSession) AcceptOffer(context.Context) (*models.Ride, error) {
	return nil, types.ErrNoOffer
}

func (s *stubSession) Arrive(context.Context) error {
	s.arrived = true
	return nil
}

func (s *stubSession) CompleteRide(context.Context, float64) (*models.Completion, error) {
	return &models.Completion{}, nil
}

type stubDevice struct{}

func (stubDevice) Push(context.Context, ...models.LocationSample) error { return nil }
func (stubDevice) SetServicesEnabled(bool)                              {}
func (stubDevice) ServicesEnabled(context.Context) bool                 { return true }

func newAPI(t *testing.T, secret string) (*API, *stubSession) {
	t.Helper()
	cfg := config.Config{}
	cfg.HTTP.Port = "0"
	cfg.Auth.JWTSecret = secret

	sess := &stubSession{}
	api, err := New(cfg, uuid.New(), sess, stubDevice{}, ws.NewConnHub(logger.Discard()), logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return api, sess
}

func TestRoutes(t *testing.T) {
	api, sess := newAPI(t, "")
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/session", http.StatusOK},
		{http.MethodPost, "/ride/arrive", http.StatusOK},
		{http.MethodPost, "/offer/accept", http.StatusConflict},
		{http.MethodPost, "/ride/no-show", http.StatusConflict},
		{http.MethodGet, "/ride/arrive", http.StatusMethodNotAllowed},
		{http.MethodGet, "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Fatalf("missing request id header")
			}
		})
	}

	if !sess.arrived {
		t.Fatalf("arrive not routed")
	}
}

func TestRoutesRequireToken(t *testing.T) {
	api, _ := newAPI(t, "secret")
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/session/online", "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}
