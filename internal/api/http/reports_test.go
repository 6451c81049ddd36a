package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	api "github.com/mind-engage/prestasi/internal/api/http"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/ranking"
	"github.com/mind-engage/prestasi/internal/rbac"
	"github.com/mind-engage/prestasi/internal/saw"
	"github.com/mind-engage/prestasi/internal/school"
	"github.com/mind-engage/prestasi/internal/storage"
)

type fixedRanker ranking.Ranking

func (f fixedRanker) Rank(context.Context) (ranking.Ranking, error) { return ranking.Ranking(f), nil }

// unsignedStore stores blobs on disk but cannot mint URLs.
type unsignedStore struct{ *storage.FSStore }

func (unsignedStore) SignedURL(string) (string, error) { return "", errors.New("signer offline") }

func TestCreateReport_SignedURLFailure(t *testing.T) {
	fs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)

	rk := fixedRanker{Version: 3, Entries: []ranking.Entry{
		{Rank: 1, Result: saw.Result{Student: school.Student{Name: "Andi", NIS: "1001", Class: "XII"}, TotalScore: 1}},
	}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logging.WithContext(req.Context(), zap.New(core))
			next.ServeHTTP(w, req.WithContext(rbac.WithRole(ctx, string(school.RoleGuru))))
		})
	})
	api.MountReports(r, rk, unsignedStore{fs})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "url")
	assert.NotEmpty(t, body["key"])

	entries := logs.FilterMessage("signed report url").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "signer offline", entries[0].ContextMap()["error"])

	// the report is still stored and listed
	keys, err := fs.List("reports/")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
