package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/nearmarket/nearmarket-backend/api/responses"
	"github.com/nearmarket/nearmarket-backend/pkg/config"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the health-check surface shared by the DB, Redis and BigQuery clients.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NearMarket-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency; nil entries are skipped so
// optional integrations never block readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NearMarket-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		statuses := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				statuses[name] = "unavailable"
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(statuses)
				responses.WriteError(ctx, logg, w, wrapped)
				return
			}
			statuses[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
