package models

import (
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

// Notice is a message pushed to the UI. Blocking notices must be acknowledged
// by the driver.
type Notice struct {
	Kind     types.NoticeKind `json:"kind"`
	Blocking bool             `json:"blocking"`
	Title    string           `json:"title"`
	Message  string           `json:"message,omitempty"`
	RideID   *uuid.UUID       `json:"ride_id,omitempty"`
	Data     map[string]any   `json:"data,omitempty"`
}

// WebSocketMessage wraps everything written to the UI socket.
type WebSocketMessage struct {
	Type types.NoticeKind `json:"type"`
	Data any              `json:"data"`
}
