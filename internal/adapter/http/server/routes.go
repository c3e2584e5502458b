package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/driver-engine/docs"
)

const swaggerInstance = "driver"

func (a *API) setupRoutes() {
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	setupSwaggerRoutes(a.mux)
	setupMetricsRoute(a.mux)

	setupSessionRoutes(a.mux, a.routes)
	setupOfferRoutes(a.mux, a.routes)
	setupRideRoutes(a.mux, a.routes)
	setupLocationRoutes(a.mux, a.routes)
}

func setupSessionRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("GET /session", routes.session.GetSession)                      // Current snapshot
	mux.HandleFunc("POST /session/online", routes.session.GoOnline)                // Go online
	mux.HandleFunc("POST /session/offline", routes.session.GoOffline)              // Go offline
	mux.HandleFunc("POST /session/reconcile", routes.session.Reconcile)            // App returned to foreground
	mux.HandleFunc("POST /session/balance/refresh", routes.session.RefreshBalance) // Re-read balance
	mux.HandleFunc("POST /session/sign-out", routes.session.SignOut)               // Forget the session
	mux.HandleFunc("GET /ws", routes.stream.HandleWS)                              // Notice stream
}

func setupOfferRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("POST /offer/accept", routes.session.AcceptOffer)
	mux.HandleFunc("POST /offer/decline", routes.session.DeclineOffer)
}

func setupRideRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("POST /ride/arrive", routes.session.Arrive)
	mux.HandleFunc("POST /ride/start", routes.session.StartRide)
	mux.HandleFunc("POST /ride/complete", routes.session.CompleteRide)
	mux.HandleFunc("POST /ride/cancel", routes.session.CancelRide)
	mux.HandleFunc("POST /ride/no-show", routes.session.ChargeNoShow)
}

func setupLocationRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("POST /location/samples", routes.location.PushSamples)
	mux.HandleFunc("PUT /location/services", routes.location.SetServices)
}

func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger/", httpSwagger.Handler(httpSwagger.InstanceName(swaggerInstance)))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
