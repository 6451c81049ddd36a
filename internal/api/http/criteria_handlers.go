package http

import (
	"math"
	"net/http"
	"strings"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/school"
)

// WeightTolerance is how far the weight total may drift from 1 before the summary flags it.
const WeightTolerance = 0.001

type criterionReq struct {
	Name   string   `json:"name" validate:"required,notblank,max=100"`
	Weight *float64 `json:"weight" validate:"required,gt=0"`
	Type   string   `json:"type" validate:"required,oneof=benefit cost"`
}

func (q criterionReq) criterion() school.Criterion {
	return school.Criterion{
		Name:   strings.TrimSpace(q.Name),
		Weight: *q.Weight,
		Type:   school.Polarity(q.Type),
	}
}

// GET /criteria
func ListCriteriaHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListCriteria(r.Context())
		if err != nil {
			internalError(w, r, "list criteria", err)
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

type criteriaSummary struct {
	Count       int     `json:"count"`
	TotalWeight float64 `json:"total_weight"`
	SumsToOne   bool    `json:"sums_to_one"`
	Warning     string  `json:"warning,omitempty"`
}

// GET /criteria/summary
// Weights are not forced to sum to 1; the summary only warns.
func CriteriaSummaryHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListCriteria(r.Context())
		if err != nil {
			internalError(w, r, "list criteria", err)
			return
		}
		httpx.JSON(w, http.StatusOK, summarize(list))
	}
}

func summarize(list []school.Criterion) criteriaSummary {
	s := criteriaSummary{Count: len(list)}
	for _, c := range list {
		s.TotalWeight += c.Weight
	}
	s.SumsToOne = math.Abs(s.TotalWeight-1) <= WeightTolerance
	if !s.SumsToOne {
		s.Warning = "Total criteria weight should be 1"
	}
	return s
}

// GET /criteria/{id}
func GetCriterionHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid criterion ID")
		if !ok {
			return
		}
		c, err := store.GetCriterion(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "Criterion not found")
			return
		}
		httpx.JSON(w, http.StatusOK, c)
	}
}

// POST /criteria
func CreateCriterionHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req criterionReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		c, err := store.CreateCriterion(r.Context(), req.criterion())
		if err != nil {
			storeError(w, r, err, "Criterion not found")
			return
		}
		httpx.JSON(w, http.StatusCreated, c)
	}
}

// PUT /criteria/{id}
func UpdateCriterionHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid criterion ID")
		if !ok {
			return
		}
		var req criterionReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		in := req.criterion()
		in.ID = id
		c, err := store.UpdateCriterion(r.Context(), in)
		if err != nil {
			storeError(w, r, err, "Criterion not found")
			return
		}
		httpx.JSON(w, http.StatusOK, c)
	}
}

// DELETE /criteria/{id}
func DeleteCriterionHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid criterion ID")
		if !ok {
			return
		}
		c, n, err := store.DeleteCriterion(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "Criterion not found")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"message":             "Criterion deleted successfully",
			"criterion":           c,
			"deleted_assessments": n,
		})
	}
}
