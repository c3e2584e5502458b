package models

import (
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

type Ride struct {
	ID           uuid.UUID        `json:"id"`
	Status       types.RideStatus `json:"status"`
	DriverID     *uuid.UUID       `json:"driver_id,omitempty"`
	PassengerID  uuid.UUID        `json:"passenger_id"`
	Pickup       Place            `json:"pickup"`
	Dropoff      Place            `json:"dropoff"`
	FareEstimate float64          `json:"fare_estimate"`
	StartCode    string           `json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	ArrivedAt *time.Time `json:"arrived_at,omitempty"`
}

// RideOffer is a time-boxed proposal of a pending ride to one driver.
type RideOffer struct {
	RideID       uuid.UUID `json:"ride_id"`
	DriverID     uuid.UUID `json:"driver_id"`
	FareEstimate float64   `json:"fare_estimate"`
	Pickup       Place     `json:"pickup"`
	Dropoff      Place     `json:"dropoff"`
	OfferedAt    time.Time `json:"offered_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the offer can no longer be acted on at now.
func (o RideOffer) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}

// CancellationRecord is an append-only audit entry for a driver cancellation.
type CancellationRecord struct {
	ID              uuid.UUID          `json:"id"`
	RideID          uuid.UUID          `json:"ride_id"`
	DriverID        uuid.UUID          `json:"driver_id"`
	Reason          types.CancelReason `json:"reason"`
	DriverLat       *float64           `json:"driver_location_lat,omitempty"`
	DriverLng       *float64           `json:"driver_location_lng,omitempty"`
	WaitTimeSeconds int                `json:"wait_time_seconds"`
	FeeEligible     bool               `json:"fee_eligible"`
	CreatedAt       time.Time          `json:"created_at"`
}

// PaymentDispute records a cash shortfall at completion.
type PaymentDispute struct {
	ID             uuid.UUID `json:"id"`
	RideID         uuid.UUID `json:"ride_id"`
	DriverID       uuid.UUID `json:"driver_id"`
	PassengerID    uuid.UUID `json:"passenger_id"`
	ExpectedAmount float64   `json:"expected_amount"`
	PaidAmount     float64   `json:"paid_amount"`
	MissingAmount  float64   `json:"missing_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// Completion is the outcome of a completed ride.
type Completion struct {
	RideID    uuid.UUID       `json:"ride_id"`
	Fare      float64         `json:"fare"`
	Collected float64         `json:"collected"`
	Dispute   *PaymentDispute `json:"dispute,omitempty"`
}

// ExpiredOffer is an offer released by the sweeper.
type ExpiredOffer struct {
	RideID   uuid.UUID
	DriverID uuid.UUID
}
