package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/google/uuid"
)

func TestAcceptSendsIDs(t *testing.T) {
	rideID, driverID := uuid.New(), uuid.New()

	var got rideRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rides/accept" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	if err := c.Accept(context.Background(), rideID, driverID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.RideID != rideID || got.DriverID != driverID {
		t.Fatalf("body = %+v", got)
	}
}

func TestErrorMessageIsSurfaced(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top level", `{"message":"Ride already taken"}`, "Ride already taken"},
		{"nested", `{"data":{"message":"Ride already taken"}}`, "Ride already taken"},
		{"no body", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL, time.Second).Accept(context.Background(), uuid.New(), uuid.New())

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want APIError", err)
			}
			if apiErr.Status != http.StatusConflict || apiErr.Message != tt.want {
				t.Fatalf("apiErr = %+v", apiErr)
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path]++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()
	ride, driver := uuid.New(), uuid.New()

	calls := []error{
		c.Arrived(ctx, ride, driver),
		c.Start(ctx, ride, driver),
		c.Complete(ctx, ride, driver),
		c.GoOffline(ctx, driver),
		c.Send(ctx, models.LocationBatch{DriverID: driver, Locations: []models.LocationSample{{Lat: 1, Lng: 2}}}),
	}
	for i, err := range calls {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	for _, p := range []string{"/rides/arrived", "/rides/start", "/rides/complete", "/rides/go-offline", "/rides/update-location"} {
		if seen[p] != 1 {
			t.Fatalf("%s called %d times", p, seen[p])
		}
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, time.Second).Arrived(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport failure reported as APIError")
	}
}
