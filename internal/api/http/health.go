package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/logging"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// GET /healthz
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// GET /readyz
func ReadyzHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("readiness ping", zap.Error(err))
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
