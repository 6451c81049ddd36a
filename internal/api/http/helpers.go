package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/school"
)

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// idParam reads a positive numeric URL parameter. It writes the 400 itself when the value is unusable.
func idParam(w http.ResponseWriter, r *http.Request, name, invalidMsg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, invalidMsg)
		return 0, false
	}
	return id, true
}

func listOpts(r *http.Request) school.ListOpts {
	q := r.URL.Query()
	return school.ListOpts{
		Q:      strings.TrimSpace(q.Get("q")),
		Class:  strings.TrimSpace(q.Get("class")),
		Limit:  parseIntDefault(q.Get("limit"), 0),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
}

func internalError(w http.ResponseWriter, r *http.Request, what string, err error) {
	logging.FromContext(r.Context()).Error(what, zap.Error(err))
	httpx.Error(w, http.StatusInternalServerError, "Internal server error")
}

// storeError maps store errors onto responses; notFound is the 404 message for the resource.
func storeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var dup *school.DuplicateKeyError
	switch {
	case errors.Is(err, school.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, notFound)
	case errors.As(err, &dup):
		httpx.Error(w, http.StatusConflict, dupMessage(dup))
	case errors.Is(err, school.ErrInvalidReference):
		httpx.Error(w, http.StatusBadRequest, "Student or criterion does not exist")
	default:
		internalError(w, r, "store", err)
	}
}

func dupMessage(d *school.DuplicateKeyError) string {
	switch d.Entity {
	case "user":
		return "Username already exists"
	case "student":
		return "NIS already exists"
	case "criterion":
		return "Criterion name already exists"
	case "assessment":
		return "Assessment for this student and criterion already exists"
	}
	return d.Error()
}
