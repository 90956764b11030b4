package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/nearmarket/nearmarket-backend/api/responses"
	"github.com/nearmarket/nearmarket-backend/pkg/config"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// BrowseRateLimit throttles browse traffic per user (or per IP for anonymous
// viewers) using a fixed Redis window. Store outages fail open.
func BrowseRateLimit(store rateLimiterStore, cfg config.RateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || cfg.BrowseLimit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := "browse:" + limiterSubject(r)
			allowed, count, err := store.FixedWindowAllow(r.Context(), scope, cfg.BrowseLimit, cfg.BrowseWindow)
			if err != nil {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{"error": err.Error()})
					logg.Warn(ctx, "rate limit check failed, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{"scope": scope, "count": count})
					logg.Warn(ctx, "rate limit exceeded")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limiterSubject(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
