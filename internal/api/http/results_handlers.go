package http

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/ranking"
	"github.com/mind-engage/prestasi/internal/saw"
	"github.com/mind-engage/prestasi/internal/school"
)

const insufficientDataMsg = "Not enough data to perform SAW calculation. Please add students, criteria, and assessments."

// Ranker is implemented by *ranking.Service.
type Ranker interface {
	Rank(ctx context.Context) (ranking.Ranking, error)
}

type insufficientDataResp struct {
	Message string   `json:"message"`
	Empty   []string `json:"empty"`
}

type resultsResp struct {
	Version  int64              `json:"version"`
	Criteria []school.Criterion `json:"criteria"`
	Total    int                `json:"total"`
	Results  []ranking.Entry    `json:"results"`
}

// rank writes the error response itself and returns false when no ranking is available.
func rank(w http.ResponseWriter, r *http.Request, rk Ranker) (ranking.Ranking, bool) {
	out, err := rk.Rank(r.Context())
	if err == nil {
		return out, true
	}
	var ide *saw.InsufficientDataError
	if errors.As(err, &ide) {
		httpx.JSON(w, http.StatusBadRequest, insufficientDataResp{Message: insufficientDataMsg, Empty: ide.Empty})
		return ranking.Ranking{}, false
	}
	internalError(w, r, "rank", err)
	return ranking.Ranking{}, false
}

func filtered(r *http.Request, rk ranking.Ranking) []ranking.Entry {
	q := r.URL.Query()
	return ranking.Filter(rk.Entries, q.Get("q"), q.Get("class"), parseIntDefault(q.Get("top"), 0))
}

// GET /results?q=&class=&top=
// Rank numbers refer to the full cohort, so a filtered view may skip numbers.
func ResultsHandler(rk Ranker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, ok := rank(w, r, rk)
		if !ok {
			return
		}
		httpx.JSON(w, http.StatusOK, resultsResp{
			Version:  out.Version,
			Criteria: out.Criteria,
			Total:    len(out.Entries),
			Results:  filtered(r, out),
		})
	}
}

// GET /results/export.csv?q=&class=&top=
func ExportResultsCSVHandler(rk Ranker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, ok := rank(w, r, rk)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="ranking.csv"`)
		if err := writeResultsCSV(w, filtered(r, out)); err != nil {
			internalError(w, r, "write csv", err)
		}
	}
}

func writeResultsCSV(dst io.Writer, entries []ranking.Entry) error {
	cw := csv.NewWriter(dst)
	if err := cw.Write([]string{"rank", "nis", "name", "class", "total_score"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.Rank),
			e.Student.NIS,
			e.Student.Name,
			e.Student.Class,
			strconv.FormatFloat(e.TotalScore, 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
