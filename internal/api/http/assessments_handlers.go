package http

import (
	"net/http"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/school"
)

type assessmentReq struct {
	StudentID   int64    `json:"student_id" validate:"required,gt=0"`
	CriterionID int64    `json:"criterion_id" validate:"required,gt=0"`
	Value       *float64 `json:"value" validate:"required,gte=0,lte=100"`
}

func (q assessmentReq) assessment() school.Assessment {
	return school.Assessment{StudentID: q.StudentID, CriterionID: q.CriterionID, Value: *q.Value}
}

// GET /assessments
func ListAssessmentsHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListAssessments(r.Context())
		if err != nil {
			internalError(w, r, "list assessments", err)
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

// GET /assessments/{id}
func GetAssessmentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid assessment ID")
		if !ok {
			return
		}
		a, err := store.GetAssessment(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "Assessment not found")
			return
		}
		httpx.JSON(w, http.StatusOK, a)
	}
}

// POST /assessments
func CreateAssessmentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assessmentReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		a, err := store.CreateAssessment(r.Context(), req.assessment())
		if err != nil {
			storeError(w, r, err, "Assessment not found")
			return
		}
		httpx.JSON(w, http.StatusCreated, a)
	}
}

// PUT /assessments/{id}
func UpdateAssessmentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid assessment ID")
		if !ok {
			return
		}
		var req assessmentReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		in := req.assessment()
		in.ID = id
		a, err := store.UpdateAssessment(r.Context(), in)
		if err != nil {
			storeError(w, r, err, "Assessment not found")
			return
		}
		httpx.JSON(w, http.StatusOK, a)
	}
}

// DELETE /assessments/{id}
func DeleteAssessmentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid assessment ID")
		if !ok {
			return
		}
		if err := store.DeleteAssessment(r.Context(), id); err != nil {
			storeError(w, r, err, "Assessment not found for deletion")
			return
		}
		httpx.Message(w, http.StatusOK, "Assessment deleted successfully")
	}
}
