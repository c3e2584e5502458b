package handler

import (
	"net/http"
	"time"

	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
)

type Health struct {
	serviceName string
	started     time.Time
	clients     func() int
	log         logger.Logger
}

// NewHealth builds the liveness handler. clients reports connected UI
// sockets and may be nil.
func NewHealth(serviceName string, clients func() int, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		started:     time.Now(),
		clients:     clients,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns liveness and uptime of the agent
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	info := envelope{
		"service-name": a.serviceName,
		"uptime":       time.Since(a.started).Truncate(time.Second).String(),
	}
	if a.clients != nil {
		info["ws_clients"] = a.clients()
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "available", "system_info": info}, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
	}
}
