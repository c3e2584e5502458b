package models

import (
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

// OfferInserted signals that a ride was offered to the driver.
type OfferInserted struct {
	DriverID  uuid.UUID `json:"driver_id"`
	RideID    uuid.UUID `json:"ride_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RideStatusChanged struct {
	RideID uuid.UUID        `json:"ride_id"`
	Status types.RideStatus `json:"status"`
}

type BalanceChanged struct {
	DriverID uuid.UUID `json:"driver_id"`
	Balance  float64   `json:"balance"`
}

// Event is the envelope published on the realtime bus.
type Event struct {
	Type      types.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`

	OfferInserted     *OfferInserted     `json:"offer_inserted,omitempty"`
	RideStatusChanged *RideStatusChanged `json:"ride_status_changed,omitempty"`
	BalanceChanged    *BalanceChanged    `json:"balance_changed,omitempty"`
}
