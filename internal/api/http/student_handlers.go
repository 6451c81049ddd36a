package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/school"
)

type studentReq struct {
	Name         string `json:"name" validate:"required,notblank,max=100"`
	NIS          string `json:"nis" validate:"required,notblank,max=20"`
	Class        string `json:"class" validate:"required,notblank,max=20"`
	GuardianName string `json:"guardian_name" validate:"max=100"`
	Address      string `json:"address" validate:"max=255"`
}

func (q studentReq) student() school.Student {
	return school.Student{
		Name:         strings.TrimSpace(q.Name),
		NIS:          strings.TrimSpace(q.NIS),
		Class:        strings.TrimSpace(q.Class),
		GuardianName: strings.TrimSpace(q.GuardianName),
		Address:      strings.TrimSpace(q.Address),
	}
}

// GET /students?q=&class=&limit=&offset=
func ListStudentsHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListStudents(r.Context(), listOpts(r))
		if err != nil {
			internalError(w, r, "list students", err)
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

// GET /students/classes
func ListClassesHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classes, err := store.ListClasses(r.Context())
		if err != nil {
			internalError(w, r, "list classes", err)
			return
		}
		httpx.JSON(w, http.StatusOK, classes)
	}
}

// GET /students/{id}
func GetStudentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid student ID")
		if !ok {
			return
		}
		s, err := store.GetStudent(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "Student not found")
			return
		}
		httpx.JSON(w, http.StatusOK, s)
	}
}

// POST /students
func CreateStudentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studentReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		s, err := store.CreateStudent(r.Context(), req.student())
		if err != nil {
			storeError(w, r, err, "Student not found")
			return
		}
		httpx.JSON(w, http.StatusCreated, s)
	}
}

// PUT /students/{id}
func UpdateStudentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid student ID")
		if !ok {
			return
		}
		var req studentReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		in := req.student()
		in.ID = id
		s, err := store.UpdateStudent(r.Context(), in)
		if err != nil {
			storeError(w, r, err, "Student not found")
			return
		}
		httpx.JSON(w, http.StatusOK, s)
	}
}

// DELETE /students/{id}
// Assessments of the student go with it.
func DeleteStudentHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid student ID")
		if !ok {
			return
		}
		if err := store.DeleteStudent(r.Context(), id); err != nil {
			storeError(w, r, err, "Student not found for deletion")
			return
		}
		httpx.Message(w, http.StatusOK, "Student deleted successfully")
	}
}

// GET /students/{id}/assessments
func ListStudentAssessmentsHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid student ID")
		if !ok {
			return
		}
		list, err := store.ListStudentAssessments(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "Student not found")
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

type batchAssessmentsReq struct {
	Assessments []school.AssessmentInput `json:"assessments"`
}

type batchAssessmentsResp struct {
	Message string `json:"message"`
	school.BatchResult
}

// POST /students/{id}/assessments  { "assessments": [ { "criterion_id": 1, "value": 90 }, ... ] }
// Items without a criterion or value, off the scale, or naming an unknown criterion are skipped.
func SaveStudentAssessmentsHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid student ID")
		if !ok {
			return
		}
		var req batchAssessmentsReq
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Assessments == nil {
			httpx.Error(w, http.StatusBadRequest, "Assessments must be an array")
			return
		}
		res, err := store.UpsertStudentAssessments(r.Context(), id, req.Assessments)
		if err != nil {
			storeError(w, r, err, "Student not found")
			return
		}
		httpx.JSON(w, http.StatusOK, batchAssessmentsResp{Message: "Assessments processed successfully", BatchResult: res})
	}
}
