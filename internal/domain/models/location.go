package models

import (
	"time"

	"github.com/google/uuid"
)

// Place is a point on the map with an optional human readable address.
type Place struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// LocationSample is one device position fix.
type LocationSample struct {
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Heading     *float64 `json:"heading,omitempty"`
	TimestampMs int64    `json:"timestamp"`
}

func (s LocationSample) Time() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// Place returns the sample position without an address.
func (s LocationSample) Place() Place {
	return Place{Lat: s.Lat, Lng: s.Lng}
}

// LocationBatch is the unit delivered to the location ingest.
type LocationBatch struct {
	DriverID  uuid.UUID        `json:"driverId"`
	Locations []LocationSample `json:"locations"`
}
