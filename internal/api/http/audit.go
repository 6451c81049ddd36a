package http

import (
	"context"
	"net/http"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	syncx "github.com/mind-engage/prestasi/internal/sync"
)

type EventLister interface {
	List(ctx context.Context, typ string, limit, offset int) ([]syncx.Event, error)
}

// GET /audit?type=&limit=&offset=
// Newest events first.
func AuditHandler(events EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := events.List(r.Context(), q.Get("type"),
			parseIntDefault(q.Get("limit"), 100), parseIntDefault(q.Get("offset"), 0))
		if err != nil {
			internalError(w, r, "list events", err)
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}
