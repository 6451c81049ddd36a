package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/prestasi/internal/api/http"
	authmw "github.com/mind-engage/prestasi/internal/auth/middleware"
	"github.com/mind-engage/prestasi/internal/db"
	"github.com/mind-engage/prestasi/internal/ranking"
	"github.com/mind-engage/prestasi/internal/school"
	"github.com/mind-engage/prestasi/internal/storage"
	syncx "github.com/mind-engage/prestasi/internal/sync"
)

func init() { authmw.BcryptCost = bcrypt.MinCost }

type env struct {
	router http.Handler
	store  *school.SQLStore
	users  map[school.Role]school.User
	tokens map[school.Role]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	events := syncx.NewEventRepo(sqlDB)
	store := school.NewSQLStore(sqlDB, events)
	_, err = authmw.SeedAdmin(ctx, store, "admin", "admin123", "")
	require.NoError(t, err)

	a := authmw.NewAuthService("test-secret", time.Hour)
	e := &env{store: store, users: map[school.Role]school.User{}, tokens: map[school.Role]string{}}
	for _, role := range school.Roles {
		u, err := store.GetUserByUsername(ctx, "admin")
		if role != school.RoleAdmin {
			hash, herr := authmw.HashPassword("secret1")
			require.NoError(t, herr)
			u, err = store.CreateUser(ctx, school.User{Name: role.DisplayName(), Username: string(role), Role: role, PasswordHash: hash})
		}
		require.NoError(t, err)
		tok, _, err := a.IssueJWT(u)
		require.NoError(t, err)
		e.users[role], e.tokens[role] = u, tok
	}

	rk, err := ranking.NewService(store, 4)
	require.NoError(t, err)
	bs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	e.router = api.NewRouter(api.Deps{
		Store:  store,
		Events: events,
		Ranker: rk,
		Blobs:  bs,
		DB:     sqlDB,
		Auth:   a,
	})
	return e
}

func (e *env) req(role school.Role, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := e.tokens[role]; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) do(role school.Role, method, path, body string) *httptest.ResponseRecorder {
	return e.req(role, method, path, "application/json", []byte(body))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Empty   []string          `json:"empty"`
}

func TestPermissions(t *testing.T) {
	e := newEnv(t)
	admin, guru, kepsek := school.RoleAdmin, school.RoleGuru, school.RoleKepalaSekolah

	cases := []struct {
		name   string
		role   school.Role
		method string
		path   string
		body   string
		want   int
	}{
		{"anonymous", "", http.MethodGet, "/students", "", http.StatusUnauthorized},
		{"kepala sekolah reads students", kepsek, http.MethodGet, "/students", "", http.StatusOK},
		{"kepala sekolah cannot create students", kepsek, http.MethodPost, "/students", `{"name":"A","nis":"1","class":"X"}`, http.StatusForbidden},
		{"kepala sekolah cannot edit criteria", kepsek, http.MethodPost, "/criteria", `{"name":"N","weight":1,"type":"benefit"}`, http.StatusForbidden},
		{"guru lists users", guru, http.MethodGet, "/users", "", http.StatusOK},
		{"guru cannot create users", guru, http.MethodPost, "/users", `{}`, http.StatusForbidden},
		{"guru cannot read audit", guru, http.MethodGet, "/audit", "", http.StatusForbidden},
		{"admin reads audit", admin, http.MethodGet, "/audit", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(tc.role, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusOK, e.do("", http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, e.do("", http.MethodGet, "/readyz", "").Code)
}

func TestStudents(t *testing.T) {
	e := newEnv(t)
	guru := school.RoleGuru

	rec := e.do(guru, http.MethodPost, "/students", `{"name":"Andi","nis":"1001","class":"XII IPA 1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	andi := decode[school.Student](t, rec)
	assert.NotZero(t, andi.ID)

	t.Run("duplicate NIS", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/students", `{"name":"Other","nis":"1001","class":"X"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NIS already exists", decode[errBody](t, rec).Message)
	})

	t.Run("validation names the field", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/students", `{"name":"No Class","nis":"2000"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "required", decode[errBody](t, rec).Errors["class"])
	})

	t.Run("whitespace-only fields are rejected", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/students", `{"name":"   ","nis":"\t","class":" "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[errBody](t, rec).Errors
		assert.Equal(t, "notblank", errs["name"])
		assert.Equal(t, "notblank", errs["nis"])
		assert.Equal(t, "notblank", errs["class"])

		rec = e.do(guru, http.MethodPut, "/students/"+itoa(andi.ID), `{"name":" ","nis":"1001","class":"XII IPA 1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "notblank", decode[errBody](t, rec).Errors["name"])

		got := decode[school.Student](t, e.do(guru, http.MethodGet, "/students/"+itoa(andi.ID), ""))
		assert.Equal(t, "Andi", got.Name)
	})

	t.Run("bad and unknown ids", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, e.do(guru, http.MethodGet, "/students/abc", "").Code)
		assert.Equal(t, http.StatusNotFound, e.do(guru, http.MethodGet, "/students/9999", "").Code)
	})

	t.Run("search, classes and update", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/students", `{"name":"Budi","nis":"1002","class":"XII IPA 2"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		list := decode[[]school.Student](t, e.do(guru, http.MethodGet, "/students?q=bud", ""))
		require.Len(t, list, 1)
		assert.Equal(t, "1002", list[0].NIS)

		classes := decode[[]string](t, e.do(guru, http.MethodGet, "/students/classes", ""))
		assert.Equal(t, []string{"XII IPA 1", "XII IPA 2"}, classes)

		rec = e.do(guru, http.MethodPut, "/students/"+itoa(andi.ID), `{"name":"Andi P.","nis":"1001","class":"XII IPA 1","address":"Jl. Merdeka"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Jl. Merdeka", decode[school.Student](t, rec).Address)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, e.do(guru, http.MethodDelete, "/students/"+itoa(andi.ID), "").Code)
		rec := e.do(guru, http.MethodDelete, "/students/"+itoa(andi.ID), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Student not found for deletion", decode[errBody](t, rec).Message)
	})
}

func TestImportStudents(t *testing.T) {
	e := newEnv(t)
	guru := school.RoleGuru

	t.Run("csv body", func(t *testing.T) {
		body := "NIS,Name,Class,Guardian_Name\n1001,Andi,XII IPA 1,Pak Budi\n1002,Citra,XII IPA 2,\n"
		rec := e.req(guru, http.MethodPost, "/students/import", "text/csv", []byte(body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, school.ImportResult{Inserted: 2}, decode[school.ImportResult](t, rec))
	})

	t.Run("json array updates by NIS", func(t *testing.T) {
		body := `[{"name":"Andi Pratama","nis":"1001","class":"XII IPA 1"},{"name":"Dewi","nis":"1003","class":"XII IPA 1"}]`
		rec := e.do(guru, http.MethodPost, "/students/import", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, school.ImportResult{Inserted: 1, Updated: 1}, decode[school.ImportResult](t, rec))
	})

	t.Run("multipart file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "students.csv")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("name,nis,class\nEka,1004,XI\n"))
		require.NoError(t, mw.Close())

		rec := e.req(guru, http.MethodPost, "/students/import", mw.FormDataContentType(), buf.Bytes())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 1, decode[school.ImportResult](t, rec).Inserted)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		rec := e.req(guru, http.MethodPost, "/students/import", "text/csv", []byte("name,class\nA,X\n"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing column: nis", decode[errBody](t, rec).Message)

		rec = e.do(guru, http.MethodPost, "/students/import", `[{"name":"A","nis":"","class":"X"}]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "row 1: missing nis", decode[errBody](t, rec).Message)
	})

	all, err := e.store.AllStudents(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCriteria(t *testing.T) {
	e := newEnv(t)
	guru := school.RoleGuru

	rec := e.do(guru, http.MethodPost, "/criteria", `{"name":"Nilai","weight":0.6,"type":"benefit"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	nilai := decode[school.Criterion](t, rec)

	t.Run("invalid type and weight", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/criteria", `{"name":"X","weight":0,"type":"both"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[errBody](t, rec).Errors
		assert.Equal(t, "oneof=benefit cost", errs["type"])
		assert.Equal(t, "gt=0", errs["weight"])
	})

	t.Run("whitespace-only name is rejected", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/criteria", `{"name":"   ","weight":0.2,"type":"benefit"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "notblank", decode[errBody](t, rec).Errors["name"])

		rec = e.do(guru, http.MethodPut, "/criteria/"+itoa(nilai.ID), `{"name":" ","weight":0.6,"type":"benefit"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "notblank", decode[errBody](t, rec).Errors["name"])
	})

	t.Run("summary warns until weights sum to one", func(t *testing.T) {
		sum := decode[map[string]any](t, e.do(guru, http.MethodGet, "/criteria/summary", ""))
		assert.Equal(t, false, sum["sums_to_one"])
		assert.NotEmpty(t, sum["warning"])

		rec := e.do(guru, http.MethodPost, "/criteria", `{"name":"Absen","weight":0.4,"type":"cost"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		sum = decode[map[string]any](t, e.do(guru, http.MethodGet, "/criteria/summary", ""))
		assert.Equal(t, true, sum["sums_to_one"])
		assert.InDelta(t, 1.0, sum["total_weight"], 1e-9)
	})

	t.Run("duplicate name", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/criteria", `{"name":"Nilai","weight":0.1,"type":"benefit"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete reports cascaded assessments", func(t *testing.T) {
		st, err := e.store.CreateStudent(context.Background(), school.Student{Name: "A", NIS: "1", Class: "X"})
		require.NoError(t, err)
		_, err = e.store.CreateAssessment(context.Background(), school.Assessment{StudentID: st.ID, CriterionID: nilai.ID, Value: 70})
		require.NoError(t, err)

		rec := e.do(guru, http.MethodDelete, "/criteria/"+itoa(nilai.ID), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, rec)["deleted_assessments"])
		assert.Equal(t, http.StatusNotFound, e.do(guru, http.MethodGet, "/criteria/"+itoa(nilai.ID), "").Code)
	})
}

func TestAssessments(t *testing.T) {
	e := newEnv(t)
	guru := school.RoleGuru
	ctx := context.Background()
	st, err := e.store.CreateStudent(ctx, school.Student{Name: "Andi", NIS: "1001", Class: "XII"})
	require.NoError(t, err)
	c, err := e.store.CreateCriterion(ctx, school.Criterion{Name: "Nilai", Weight: 1, Type: school.Benefit})
	require.NoError(t, err)

	body := `{"student_id":` + itoa(st.ID) + `,"criterion_id":` + itoa(c.ID) + `,"value":0}`
	rec := e.do(guru, http.MethodPost, "/assessments", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	a := decode[school.Assessment](t, rec)

	t.Run("pair is unique", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/assessments", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Assessment for this student and criterion already exists", decode[errBody](t, rec).Message)
	})

	t.Run("value outside 0-100", func(t *testing.T) {
		rec := e.do(guru, http.MethodPut, "/assessments/"+itoa(a.ID), `{"student_id":`+itoa(st.ID)+`,"criterion_id":`+itoa(c.ID)+`,"value":101}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "lte=100", decode[errBody](t, rec).Errors["value"])
	})

	t.Run("unknown student", func(t *testing.T) {
		rec := e.do(guru, http.MethodPost, "/assessments", `{"student_id":999,"criterion_id":`+itoa(c.ID)+`,"value":5}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("joined read", func(t *testing.T) {
		got := decode[school.Assessment](t, e.do(school.RoleKepalaSekolah, http.MethodGet, "/assessments/"+itoa(a.ID), ""))
		require.NotNil(t, got.Student)
		assert.Equal(t, "Andi", got.Student.Name)
	})

	t.Run("batch save per student", func(t *testing.T) {
		path := "/students/" + itoa(st.ID) + "/assessments"
		rec := e.do(guru, http.MethodPost, path, `{"assessments":[{"criterion_id":`+itoa(c.ID)+`,"value":88},{"criterion_id":`+itoa(c.ID)+`}]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[map[string]any](t, rec)
		assert.EqualValues(t, 1, res["processed"])
		assert.EqualValues(t, 2, res["total"])

		list := decode[[]school.Assessment](t, e.do(guru, http.MethodGet, path, ""))
		require.Len(t, list, 1)
		assert.Equal(t, 88.0, list[0].Value)

		rec = e.do(guru, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Assessments must be an array", decode[errBody](t, rec).Message)

		assert.Equal(t, http.StatusNotFound, e.do(guru, http.MethodPost, "/students/999/assessments", `{"assessments":[]}`).Code)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, e.do(guru, http.MethodDelete, "/assessments/"+itoa(a.ID), "").Code)
		assert.Equal(t, http.StatusNotFound, e.do(guru, http.MethodDelete, "/assessments/"+itoa(a.ID), "").Code)
	})
}

func seedCohort(t *testing.T, s *school.SQLStore) (school.Student, school.Student, school.Criterion) {
	t.Helper()
	ctx := context.Background()
	a, err := s.CreateStudent(ctx, school.Student{Name: "Andi", NIS: "1001", Class: "XII IPA 1"})
	require.NoError(t, err)
	b, err := s.CreateStudent(ctx, school.Student{Name: "Budi", NIS: "1002", Class: "XII IPA 2"})
	require.NoError(t, err)
	nilai, err := s.CreateCriterion(ctx, school.Criterion{Name: "Nilai", Weight: 0.6, Type: school.Benefit})
	require.NoError(t, err)
	absen, err := s.CreateCriterion(ctx, school.Criterion{Name: "Absen", Weight: 0.4, Type: school.Cost})
	require.NoError(t, err)
	for _, x := range []school.Assessment{
		{StudentID: a.ID, CriterionID: nilai.ID, Value: 90},
		{StudentID: a.ID, CriterionID: absen.ID, Value: 2},
		{StudentID: b.ID, CriterionID: nilai.ID, Value: 80},
		{StudentID: b.ID, CriterionID: absen.ID, Value: 1},
	} {
		_, err := s.CreateAssessment(ctx, x)
		require.NoError(t, err)
	}
	return a, b, absen
}

type resultsBody struct {
	Version int64 `json:"version"`
	Total   int   `json:"total"`
	Results []struct {
		Rank       int            `json:"rank"`
		Student    school.Student `json:"student"`
		TotalScore float64        `json:"total_score"`
	} `json:"results"`
}

func TestResults(t *testing.T) {
	e := newEnv(t)
	kepsek := school.RoleKepalaSekolah

	t.Run("insufficient data", func(t *testing.T) {
		rec := e.do(kepsek, http.MethodGet, "/results", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errBody](t, rec)
		assert.Equal(t, "Not enough data to perform SAW calculation. Please add students, criteria, and assessments.", body.Message)
		assert.Equal(t, []string{"students", "criteria", "assessments"}, body.Empty)
	})

	a, _, absen := seedCohort(t, e.store)

	res := decode[resultsBody](t, e.do(kepsek, http.MethodGet, "/results", ""))
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Budi", res.Results[0].Student.Name)
	assert.Equal(t, 1, res.Results[0].Rank)
	assert.InDelta(t, 0.6*80.0/90.0+0.4, res.Results[0].TotalScore, 1e-9)
	assert.InDelta(t, 0.8, res.Results[1].TotalScore, 1e-9)

	t.Run("filters keep cohort ranks", func(t *testing.T) {
		res := decode[resultsBody](t, e.do(kepsek, http.MethodGet, "/results?q=and", ""))
		require.Len(t, res.Results, 1)
		assert.Equal(t, 2, res.Results[0].Rank)
		assert.Equal(t, 2, res.Total)

		res = decode[resultsBody](t, e.do(kepsek, http.MethodGet, "/results?top=1", ""))
		require.Len(t, res.Results, 1)
		assert.Equal(t, "Budi", res.Results[0].Student.Name)
	})

	t.Run("csv export", func(t *testing.T) {
		rec := e.do(kepsek, http.MethodGet, "/results/export.csv", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Equal(t, "rank,nis,name,class,total_score\n1,1002,Budi,XII IPA 2,0.9333\n2,1001,Andi,XII IPA 1,0.8000\n", rec.Body.String())
	})

	t.Run("writes are reflected immediately", func(t *testing.T) {
		rec := e.do(school.RoleGuru, http.MethodPost, "/students/"+itoa(a.ID)+"/assessments",
			`{"assessments":[{"criterion_id":`+itoa(absen.ID)+`,"value":1}]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		after := decode[resultsBody](t, e.do(kepsek, http.MethodGet, "/results", ""))
		assert.Greater(t, after.Version, res.Version)
		assert.Equal(t, "Andi", after.Results[0].Student.Name)
		assert.InDelta(t, 1.0, after.Results[0].TotalScore, 1e-9)
	})
}

func TestReports(t *testing.T) {
	e := newEnv(t)
	seedCohort(t, e.store)

	assert.Equal(t, http.StatusForbidden, e.do(school.RoleKepalaSekolah, http.MethodPost, "/results/reports", "").Code)

	rec := e.do(school.RoleGuru, http.MethodPost, "/results/reports", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	name, _ := created["name"].(string)
	require.True(t, strings.HasPrefix(name, "ranking-v"), name)
	assert.EqualValues(t, 2, created["students"])

	list := decode[[]map[string]any](t, e.do(school.RoleKepalaSekolah, http.MethodGet, "/results/reports", ""))
	require.Len(t, list, 1)
	assert.Equal(t, name, list[0]["name"])

	rec = e.do(school.RoleKepalaSekolah, http.MethodGet, "/results/reports/"+name, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "rank,nis,name,class,total_score\n1,1002,Budi"))

	assert.Equal(t, http.StatusNotFound, e.do(school.RoleGuru, http.MethodGet, "/results/reports/missing.csv", "").Code)
}

func TestUsers(t *testing.T) {
	e := newEnv(t)
	admin := school.RoleAdmin
	adminID := e.users[admin].ID

	t.Run("create and list by role", func(t *testing.T) {
		rec := e.do(admin, http.MethodPost, "/users", `{"name":"Bu Sari","username":"sari","password":"rahasia","role":"guru"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "password")

		rec = e.do(admin, http.MethodPost, "/users", `{"name":"Dup","username":"sari","password":"rahasia","role":"guru"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = e.do(admin, http.MethodPost, "/users", `{"name":"X","username":"x","password":"123","role":"root"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[errBody](t, rec).Errors
		assert.Equal(t, "min=6", errs["password"])
		assert.Equal(t, "oneof=admin guru kepala_sekolah", errs["role"])

		rec = e.do(admin, http.MethodPost, "/users", `{"name":"  ","username":" ","password":"rahasia","role":"guru"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs = decode[errBody](t, rec).Errors
		assert.Equal(t, "notblank", errs["name"])
		assert.Equal(t, "notblank", errs["username"])

		gurus := decode[[]school.User](t, e.do(admin, http.MethodGet, "/users?role=guru", ""))
		assert.Len(t, gurus, 2)
		assert.Equal(t, http.StatusBadRequest, e.do(admin, http.MethodGet, "/users?role=root", "").Code)
	})

	t.Run("last admin is protected", func(t *testing.T) {
		rec := e.do(admin, http.MethodPut, "/users/"+itoa(adminID), `{"name":"Admin","username":"admin","role":"guru"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Cannot demote the last admin", decode[errBody](t, rec).Message)

		rec = e.do(admin, http.MethodDelete, "/users/"+itoa(adminID), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "You cannot delete your own account", decode[errBody](t, rec).Message)
	})

	t.Run("password reset allows login", func(t *testing.T) {
		guruID := e.users[school.RoleGuru].ID
		rec := e.do(admin, http.MethodPut, "/users/"+itoa(guruID)+"/password", `{"password":"baru123"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = e.do("", http.MethodPost, "/auth/login", `{"username":"guru","password":"baru123"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, http.StatusNotFound, e.do(admin, http.MethodPut, "/users/999/password", `{"password":"baru123"}`).Code)
	})

	t.Run("delete", func(t *testing.T) {
		kepsekID := e.users[school.RoleKepalaSekolah].ID
		assert.Equal(t, http.StatusOK, e.do(admin, http.MethodDelete, "/users/"+itoa(kepsekID), "").Code)
		assert.Equal(t, http.StatusNotFound, e.do(admin, http.MethodGet, "/users/"+itoa(kepsekID), "").Code)
	})
}

func TestAudit(t *testing.T) {
	e := newEnv(t)
	rec := e.do(school.RoleGuru, http.MethodPost, "/students", `{"name":"Andi","nis":"1001","class":"X"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	events := decode[[]syncx.Event](t, e.do(school.RoleAdmin, http.MethodGet, "/audit?type=StudentCreated", ""))
	require.Len(t, events, 1)
	assert.Equal(t, "guru", events[0].Actor)
}
