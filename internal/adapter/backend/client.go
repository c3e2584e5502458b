package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// APIError is a non-2xx answer of the ride backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ride backend responded %d", e.Status)
	}
	return fmt.Sprintf("ride backend responded %d: %s", e.Status, e.Message)
}

// Client calls the ride backend. Accept, status transitions and going
// offline are authoritative there.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type rideRequest struct {
	RideID   uuid.UUID `json:"rideId"`
	DriverID uuid.UUID `json:"driverId"`
}

type driverRequest struct {
	DriverID uuid.UUID `json:"driverId"`
}

// errorPayload covers both {"message": ...} and {"data": {"message": ...}}.
type errorPayload struct {
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if lc, ok := wrap.Get(ctx); ok && lc.RequestID != "" {
		req.Header.Set("X-Request-ID", lc.RequestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return wrap.Error(ctx, fmt.Errorf("POST %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var p errorPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&p); err == nil {
		apiErr.Message = p.Message
		if apiErr.Message == "" {
			apiErr.Message = p.Data.Message
		}
	}

	ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
	return wrap.Error(ctx, fmt.Errorf("POST %s: %w", path, apiErr))
}

func (c *Client) Accept(ctx context.Context, rideID, driverID uuid.UUID) error {
	const op = "Backend.Accept"
	if err := c.post(ctx, "/rides/accept", rideRequest{RideID: rideID, DriverID: driverID}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) Arrived(ctx context.Context, rideID, driverID uuid.UUID) error {
	const op = "Backend.Arrived"
	if err := c.post(ctx, "/rides/arrived", rideRequest{RideID: rideID, DriverID: driverID}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) Start(ctx context.Context, rideID, driverID uuid.UUID) error {
	const op = "Backend.Start"
	if err := c.post(ctx, "/rides/start", rideRequest{RideID: rideID, DriverID: driverID}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) Complete(ctx context.Context, rideID, driverID uuid.UUID) error {
	const op = "Backend.Complete"
	if err := c.post(ctx, "/rides/complete", rideRequest{RideID: rideID, DriverID: driverID}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) GoOffline(ctx context.Context, driverID uuid.UUID) error {
	const op = "Backend.GoOffline"
	if err := c.post(ctx, "/rides/go-offline", driverRequest{DriverID: driverID}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Send delivers a location batch. It is the HTTP location ingest.
func (c *Client) Send(ctx context.Context, batch models.LocationBatch) error {
	const op = "Backend.Send"
	if err := c.post(ctx, "/rides/update-location", batch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
