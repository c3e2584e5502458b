package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/driver-engine/config"
	"github.com/Temutjin2k/driver-engine/internal/adapter/http/handler"
	"github.com/Temutjin2k/driver-engine/internal/adapter/http/middleware"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/driver-engine/pkg/wsHub"
	"github.com/google/uuid"
)

const (
	serverIPAddress = "%s:%s"
	serviceName     = "driver-agent"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health   *handler.Health
	session  *handler.Session
	location *handler.Location
	stream   *handler.Stream
}

func New(
	cfg config.Config,
	driverID uuid.UUID,
	session handler.SessionService,
	device handler.LocationDevice,
	hub *ws.ConnectionHub,
	log logger.Logger,
) (*API, error) {
	if session == nil || device == nil || hub == nil {
		return nil, errors.New("session, location device and websocket hub are required")
	}

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			health:   handler.NewHealth(serviceName, hub.Len, log),
			session:  handler.NewSession(session, log),
			location: handler.NewLocation(device, session, log),
			stream:   handler.NewStream(hub, session, log),
		},
		m:    middleware.NewMiddleware(cfg.Auth.JWTSecret, driverID, log),
		addr: fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.HTTP.Port),
		log:  log,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// Handler returns the fully wrapped router.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(
		a.m.RequestID(
			a.m.Logging(
				a.m.Metrics(serviceName)(
					a.m.Auth(a.mux),
				),
			),
		),
	)
}
