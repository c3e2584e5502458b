package models

import (
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

// Intent is the durable record of whether the driver wants to be online.
type Intent struct {
	DriverID uuid.UUID `json:"driver_id"`
	Online   bool      `json:"online"`
}

// HasDriver reports whether a driver is signed in on this device.
func (i Intent) HasDriver() bool {
	return i.DriverID != uuid.Nil
}

// Toggle is the optimistic sub-state of the last availability change.
type Toggle struct {
	Target bool                `json:"target"`
	State  types.MutationState `json:"state"`
}

type DriverSession struct {
	DriverID uuid.UUID `json:"driver_id"`
	IsOnline bool      `json:"is_online"`
	Balance  float64   `json:"balance"`
	Toggle   Toggle    `json:"toggle"`
}

type Profile struct {
	DriverID uuid.UUID `json:"driver_id"`
	Balance  float64   `json:"balance"`
	IsOnline bool      `json:"is_online"`
}

// ReconcileResult describes one reconciliation pass.
type ReconcileResult struct {
	Intent     bool                  `json:"intent"`
	WasRunning bool                  `json:"was_running"`
	Action     types.ReconcileAction `json:"action"`
}

// OfferSnapshot is the read model of the offer controller.
type OfferSnapshot struct {
	State            types.OfferState `json:"state"`
	Offer            *RideOffer       `json:"offer,omitempty"`
	Ride             *Ride            `json:"ride,omitempty"`
	RemainingSeconds int              `json:"remaining_seconds"`
}

// RideSnapshot is the read model of the ride controller.
type RideSnapshot struct {
	Ride            *Ride                `json:"ride,omitempty"`
	Pending         bool                 `json:"pending"`
	WaitSeconds     int                  `json:"wait_seconds"`
	NoShowAvailable bool                 `json:"no_show_available"`
	CancelReasons   []types.CancelReason `json:"cancel_reasons,omitempty"`
}

// Snapshot is the whole session as shown to the UI.
type Snapshot struct {
	Session DriverSession `json:"session"`
	Offer   OfferSnapshot `json:"offer"`
	Ride    RideSnapshot  `json:"ride"`
}
