package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/rbac"
	"github.com/mind-engage/prestasi/internal/storage"
)

const reportPrefix = "reports/"

type reportResp struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	URL       string `json:"url,omitempty"`
	Version   int64  `json:"version,omitempty"`
	Students  int    `json:"students,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// MountReports wires the persisted ranking reports under the given router (mounted at /results/reports).
func MountReports(r chi.Router, rk Ranker, bs storage.BlobStore) {
	// POST /results/reports  -> snapshot of the full ranking as CSV
	r.With(rbac.Require("results:create")).Post("/", func(w http.ResponseWriter, r *http.Request) {
		out, ok := rank(w, r, rk)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := writeResultsCSV(&buf, out.Entries); err != nil {
			internalError(w, r, "write csv", err)
			return
		}
		now := time.Now().UTC()
		name := fmt.Sprintf("ranking-v%d-%s.csv", out.Version, now.Format("20060102T150405"))
		key, err := bs.Put(reportPrefix+name, &buf)
		if err != nil {
			internalError(w, r, "store report", err)
			return
		}
		url, err := bs.SignedURL(key)
		if err != nil {
			// the report is stored; callers can still fetch it by name
			logging.FromContext(r.Context()).Warn("signed report url", zap.String("key", key), zap.Error(err))
			url = ""
		}
		httpx.JSON(w, http.StatusCreated, reportResp{
			Name:      name,
			Key:       key,
			URL:       url,
			Version:   out.Version,
			Students:  len(out.Entries),
			CreatedAt: now.Unix(),
		})
	})

	// GET /results/reports
	r.With(rbac.Require("results:read")).Get("/", func(w http.ResponseWriter, r *http.Request) {
		keys, err := bs.List(reportPrefix)
		if err != nil {
			internalError(w, r, "list reports", err)
			return
		}
		out := make([]reportResp, 0, len(keys))
		for _, k := range keys {
			out = append(out, reportResp{Name: path.Base(k), Key: k})
		}
		httpx.JSON(w, http.StatusOK, out)
	})

	// GET /results/reports/{name}
	r.With(rbac.Require("results:read")).Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" || strings.ContainsAny(name, `/\`) {
			httpx.Error(w, http.StatusBadRequest, "Invalid report name")
			return
		}
		rc, err := bs.Get(reportPrefix + name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httpx.Error(w, http.StatusNotFound, "Report not found")
			return
		case errors.Is(err, storage.ErrInvalidKey):
			httpx.Error(w, http.StatusBadRequest, "Invalid report name")
			return
		case err != nil:
			internalError(w, r, "read report", err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = io.Copy(w, rc)
	})
}
