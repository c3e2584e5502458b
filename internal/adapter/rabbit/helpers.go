package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

// Routing key prefixes on the ride events exchange.
const (
	keyOfferInserted  = "offer.inserted"
	keyRideStatus     = "ride.status"
	keyBalanceChanged = "balance.changed"
)

// BindingKeys returns the routing keys a driver's queue listens on. Ride
// status changes are received for every ride; the session drops those it
// does not know.
func BindingKeys(driverID uuid.UUID) []string {
	return []string{
		keyOfferInserted + "." + driverID.String(),
		keyBalanceChanged + "." + driverID.String(),
		keyRideStatus + ".*",
	}
}

func QueueName(driverID uuid.UUID) string {
	return "driver_events." + driverID.String()
}

// decodeEvent accepts either the full event envelope or a bare payload, in
// which case the type is taken from the routing key.
func decodeEvent(routingKey string, body []byte) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type != "" {
		return ev, validate(ev)
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	var err error
	switch {
	case strings.HasPrefix(routingKey, keyOfferInserted+"."):
		ev.Type = types.EventOfferInserted
		ev.OfferInserted = &models.OfferInserted{}
		err = json.Unmarshal(body, ev.OfferInserted)
	case strings.HasPrefix(routingKey, keyRideStatus+"."):
		ev.Type = types.EventRideStatusChanged
		ev.RideStatusChanged = &models.RideStatusChanged{}
		err = json.Unmarshal(body, ev.RideStatusChanged)
	case strings.HasPrefix(routingKey, keyBalanceChanged+"."):
		ev.Type = types.EventBalanceChanged
		ev.BalanceChanged = &models.BalanceChanged{}
		err = json.Unmarshal(body, ev.BalanceChanged)
	default:
		return ev, fmt.Errorf("unknown routing key %q", routingKey)
	}
	if err != nil {
		return ev, fmt.Errorf("decode %s payload: %w", ev.Type, err)
	}
	return ev, validate(ev)
}

func validate(ev models.Event) error {
	switch ev.Type {
	case types.EventOfferInserted:
		if ev.OfferInserted == nil || ev.OfferInserted.RideID == uuid.Nil {
			return fmt.Errorf("%s: missing ride id", ev.Type)
		}
	case types.EventRideStatusChanged:
		if ev.RideStatusChanged == nil || !ev.RideStatusChanged.Status.Valid() {
			return fmt.Errorf("%s: missing or invalid status", ev.Type)
		}
	case types.EventBalanceChanged:
		if ev.BalanceChanged == nil || ev.BalanceChanged.DriverID == uuid.Nil {
			return fmt.Errorf("%s: missing driver id", ev.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// sleepCtx waits d or until ctx is done and reports whether ctx is still
// alive.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
