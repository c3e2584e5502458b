package middleware

import (
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/google/uuid"
)

type Middleware struct {
	secret   []byte
	driverID uuid.UUID
	log      logger.Logger
}

// NewMiddleware builds the control API middleware. An empty jwtSecret turns
// token checks off.
func NewMiddleware(jwtSecret string, driverID uuid.UUID, log logger.Logger) *Middleware {
	return &Middleware{
		secret:   []byte(jwtSecret),
		driverID: driverID,
		log:      log,
	}
}
