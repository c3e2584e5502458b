package dto

import (
	"fmt"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/pkg/validator"
)

const maxSamplesPerRequest = 100

type LocationSampleReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type PushLocationReq struct {
	Locations []LocationSampleReq `json:"locations"`
}

func (r *PushLocationReq) Validate(v *validator.Validator) {
	v.Check(len(r.Locations) > 0, "locations", "must contain at least one sample")
	v.Check(len(r.Locations) <= maxSamplesPerRequest, "locations", fmt.Sprintf("must not contain more than %d samples", maxSamplesPerRequest))

	for i, s := range r.Locations {
		key := fmt.Sprintf("locations[%d]", i)
		if s.Latitude == nil || s.Longitude == nil {
			v.AddError(key, "latitude and longitude must be provided")
			continue
		}
		v.Check(*s.Latitude >= -90 && *s.Latitude <= 90, key+".latitude", "must be between -90 and 90")
		v.Check(*s.Longitude >= -180 && *s.Longitude <= 180, key+".longitude", "must be between -180 and 180")
		v.Check(s.Timestamp > 0, key+".timestamp", "must be a positive unix time in milliseconds")
		if s.Heading != nil {
			v.Check(*s.Heading >= 0 && *s.Heading < 360, key+".heading", "must be between 0 and 360")
		}
	}
}

func (r *PushLocationReq) ToModel() []models.LocationSample {
	out := make([]models.LocationSample, 0, len(r.Locations))
	for _, s := range r.Locations {
		out = append(out, models.LocationSample{
			Lat:         *s.Latitude,
			Lng:         *s.Longitude,
			Heading:     s.Heading,
			TimestampMs: s.Timestamp,
		})
	}
	return out
}

type LocationServicesReq struct {
	Enabled *bool `json:"enabled"`
}

func (r *LocationServicesReq) Validate(v *validator.Validator) {
	v.Check(r.Enabled != nil, "enabled", "must be provided")
}
