package types

import (
	"errors"
	"fmt"
)

var (
	ErrLowBalance          = errors.New("balance below debt ceiling")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrOfferUnavailable    = errors.New("ride no longer available")
	ErrWrongCode           = errors.New("wrong start code")
	ErrStatusUpdateFailed  = errors.New("ride status update failed")

	ErrActiveRideExists    = errors.New("driver already has an active ride")
	ErrNoActiveRide        = errors.New("no active ride")
	ErrNoOffer             = errors.New("no incoming offer")
	ErrDriverOffline       = errors.New("driver is offline")
	ErrInvalidTransition   = errors.New("invalid ride status transition")
	ErrActionInProgress    = errors.New("another action is in progress")
	ErrNoShowNotAvailable  = errors.New("no-show is not available yet")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAmountExceedsFare   = errors.New("amount cannot exceed fare")
	ErrAmountChanged       = errors.New("amount differs from the recorded payment dispute")
	ErrInvalidCancelReason = errors.New("invalid cancellation reason")

	ErrRideNotFound    = errors.New("ride not found")
	ErrProfileNotFound = errors.New("driver profile not found")
	ErrNotFound        = errors.New("requested item not found")
	ErrNoDriverID      = errors.New("driver id is not set")
)

// Location failures are distinguished for messaging but all match
// ErrLocationUnavailable.
var (
	ErrLocationServicesDisabled = fmt.Errorf("%w: location services disabled", ErrLocationUnavailable)
	ErrNoLocationFix            = fmt.Errorf("%w: no location fix", ErrLocationUnavailable)
)
