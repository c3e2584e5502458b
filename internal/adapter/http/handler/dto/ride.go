package dto

import (
	"encoding/json"
	"unicode"

	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/validator"
)

type StartRideReq struct {
	Code string `json:"code"`
}

func (r *StartRideReq) Validate(v *validator.Validator) {
	v.Check(r.Code != "", "code", "must be provided")
	v.Check(len(r.Code) <= 8, "code", "must not be longer than 8 characters")
	v.Check(allDigits(r.Code), "code", "must contain only digits")
}

// CompleteRideReq carries the cash amount the driver collected. It stays a
// json.Number so the exact text typed by the driver reaches the parser.
type CompleteRideReq struct {
	Collected json.Number `json:"collected"`
}

func (r *CompleteRideReq) Validate(v *validator.Validator) {
	v.Check(r.Collected != "", "collected", "must be provided")
}

type CancelRideReq struct {
	Reason types.CancelReason `json:"reason"`
}

func (r *CancelRideReq) Validate(v *validator.Validator) {
	v.Check(r.Reason != "", "reason", "must be provided")
	v.Check(
		validator.PermittedValue(r.Reason, types.DriverCancelReasons...),
		"reason",
		"must be one of TRAFFIC, CAR_ISSUE, TOO_FAR, PERSONAL",
	)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
