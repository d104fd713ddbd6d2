package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradeledger/backend/api/controllers"
	"github.com/tradeledger/backend/api/middleware"
	"github.com/tradeledger/backend/internal/orders"
	"github.com/tradeledger/backend/internal/parties"
	"github.com/tradeledger/backend/pkg/config"
	"github.com/tradeledger/backend/pkg/db"
	"github.com/tradeledger/backend/pkg/logger"
	pkgredis "github.com/tradeledger/backend/pkg/redis"
)

// NewRouter wires the full HTTP surface. redisClient may be nil when redis is
// not configured; the idempotency middleware and readiness check degrade
// gracefully.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	partyService parties.Service,
	orderService orders.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	var idempotencyStore pkgredis.IdempotencyStore
	var cachePinger pkgredis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/parties", func(r chi.Router) {
		r.With(middleware.Idempotency(idempotencyStore, logg)).Post("/", controllers.CreateParty(partyService, logg))
		r.Get("/", controllers.ListParties(partyService, logg))
		r.Get("/search", controllers.SearchParties(partyService, logg))
		r.Get("/by-balance", controllers.PartiesByBalance(partyService, logg))
		r.Get("/{id}", controllers.GetParty(partyService, logg))
		r.Put("/{id}", controllers.UpdateParty(partyService, logg))
		r.Delete("/{id}", controllers.DeactivateParty(partyService, logg))
		r.Get("/{id}/balance", controllers.GetPartyBalance(partyService, logg))
		r.Get("/{id}/orders", controllers.ListPartyOrders(orderService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.With(middleware.Idempotency(idempotencyStore, logg)).Post("/", controllers.SubmitOrder(orderService, logg))
		r.Get("/", controllers.ListOrders(orderService, logg))
		r.Get("/{id}", controllers.GetOrder(orderService, logg))
	})

	return r
}
