package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nearmarket/nearmarket-backend/api/controllers"
	"github.com/nearmarket/nearmarket-backend/api/routes"
	"github.com/nearmarket/nearmarket-backend/internal/analytics"
	"github.com/nearmarket/nearmarket-backend/internal/barter"
	"github.com/nearmarket/nearmarket-backend/internal/listings"
	"github.com/nearmarket/nearmarket-backend/internal/location"
	"github.com/nearmarket/nearmarket-backend/internal/marketplace"
	"github.com/nearmarket/nearmarket-backend/internal/notifications"
	"github.com/nearmarket/nearmarket-backend/pkg/bigquery"
	"github.com/nearmarket/nearmarket-backend/pkg/config"
	"github.com/nearmarket/nearmarket-backend/pkg/db"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/maps"
	"github.com/nearmarket/nearmarket-backend/pkg/metrics"
	"github.com/nearmarket/nearmarket-backend/pkg/migrate"
	"github.com/nearmarket/nearmarket-backend/pkg/pubsub"
	"github.com/nearmarket/nearmarket-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	var mapsClient *maps.Client
	if cfg.Geo.GoogleMapsAPIKey != "" {
		mapsClient, err = maps.NewClient(cfg.Geo.GoogleMapsAPIKey)
		requireResource(ctx, logg, "google maps", err)
	} else {
		logg.Warn(ctx, "google maps api key not set, location resolution runs degraded")
	}

	var pubsubClient *pubsub.Client
	var bqClient *bigquery.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()

		bqClient, err = bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(ctx, "error closing bigquery", err)
			}
		}()
	} else {
		logg.Warn(ctx, "gcp project not set, events and analytics disabled")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := prometheus.NewRegistry()
	requestMetrics := metrics.NewRequestMetrics(registry)
	searchStats := metrics.NewSearchMetrics(registry)

	listingRepo := listings.NewRepository(dbClient.DB())

	var listingEvents listings.EventPublisher
	var barterEvents barter.EventPublisher
	if pubsubClient != nil {
		listingEvents = pubsubClient
		barterEvents = pubsubClient
	}

	var searchRecorder marketplace.SearchRecorder
	if bqClient != nil {
		searchWriter, err := analytics.NewWriter(bqClient, analytics.WriterConfig{
			SearchEventsTable: cfg.BigQuery.SearchEventsTable,
		})
		requireResource(ctx, logg, "search analytics writer", err)

		recorder, err := analytics.NewRecorder(searchWriter, analytics.RecorderConfig{}, logg)
		requireResource(ctx, logg, "search analytics recorder", err)

		go func() {
			if err := recorder.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(runCtx, "analytics recorder stopped unexpectedly", err)
			}
		}()
		searchRecorder = recorder
	}

	listingSvc, err := listings.NewService(listingRepo, listingEvents, logg)
	requireResource(ctx, logg, "listing service", err)

	marketplaceSvc, err := marketplace.NewService(listingRepo, redisClient, searchRecorder, searchStats, cfg.Search, logg)
	requireResource(ctx, logg, "marketplace service", err)

	var geocoder location.Geocoder
	if mapsClient != nil {
		geocoder = mapsClient
	}
	locationSvc, err := location.NewService(geocoder, redisClient, cfg.Geo, logg)
	requireResource(ctx, logg, "location service", err)

	barterSvc, err := barter.NewService(barter.NewRepository(dbClient.DB()), listingRepo, barterEvents, logg)
	requireResource(ctx, logg, "barter service", err)

	notificationSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notification service", err)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}
	if pubsubClient != nil {
		readiness["pubsub"] = pubsubClient
	}
	if bqClient != nil {
		readiness["bigquery"] = bqClient
	}

	router := routes.NewRouter(routes.Dependencies{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		Gatherer:       registry,
		RequestMetrics: requestMetrics,
		Readiness:      readiness,
		Marketplace:    marketplaceSvc,
		Location:       locationSvc,
		Listings:       listingSvc,
		Barter:         barterSvc,
		Notifications:  notificationSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
