package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nearmarket/nearmarket-backend/api/controllers"
	"github.com/nearmarket/nearmarket-backend/api/middleware"
	"github.com/nearmarket/nearmarket-backend/internal/barter"
	"github.com/nearmarket/nearmarket-backend/internal/listings"
	"github.com/nearmarket/nearmarket-backend/internal/location"
	"github.com/nearmarket/nearmarket-backend/internal/marketplace"
	"github.com/nearmarket/nearmarket-backend/internal/notifications"
	"github.com/nearmarket/nearmarket-backend/pkg/config"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/metrics"
	"github.com/nearmarket/nearmarket-backend/pkg/redis"
)

// Dependencies bundles everything the router needs; optional entries may be
// nil and the matching surface degrades or disappears.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer

	RequestMetrics *metrics.RequestMetrics
	Readiness      map[string]controllers.Pinger

	Marketplace   marketplace.Service
	Location      location.Service
	Listings      listings.Service
	Barter        barter.Service
	Notifications notifications.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.RequestMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/marketplace", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.BrowseRateLimit(deps.Redis, cfg.RateLimit, logg))
		r.Get("/products", controllers.BrowseProducts(deps.Marketplace, logg))
		r.Get("/products/nearby", controllers.NearbyProducts(deps.Marketplace, logg))
		r.Get("/listings/{listingId}", controllers.GetListing(deps.Listings, logg))
	})

	r.Route("/api/v1/location", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Post("/resolve", controllers.ResolveLocation(deps.Location, logg))
		r.Get("/autocomplete", controllers.LocationAutocomplete(deps.Location, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/seller/listings", func(r chi.Router) {
			r.Get("/", controllers.SellerListListings(deps.Listings, logg))
			r.Post("/", controllers.SellerCreateListing(deps.Listings, logg))
			r.Patch("/{listingId}", controllers.SellerUpdateListing(deps.Listings, logg))
			r.Post("/{listingId}/archive", controllers.SellerArchiveListing(deps.Listings, logg))
			r.Delete("/{listingId}", controllers.SellerDeleteListing(deps.Listings, logg))
			r.Get("/{listingId}/proposals", controllers.ListListingProposals(deps.Barter, logg))
		})

		r.Route("/barter", func(r chi.Router) {
			r.Post("/proposals", controllers.ProposeBarter(deps.Barter, logg))
			r.Get("/proposals", controllers.ListMyProposals(deps.Barter, logg))
			r.Post("/proposals/{proposalId}/decision", controllers.DecideBarter(deps.Barter, logg))
			r.Post("/proposals/{proposalId}/withdraw", controllers.WithdrawBarter(deps.Barter, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
