package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/prestasi/internal/auth/middleware"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/metrics"
	"github.com/mind-engage/prestasi/internal/rbac"
	"github.com/mind-engage/prestasi/internal/school"
	"github.com/mind-engage/prestasi/internal/storage"
)

type Deps struct {
	Store   school.Store
	Events  EventLister
	Ranker  Ranker
	Blobs   storage.BlobStore
	DB      Pinger
	Auth    *authmw.AuthService
	Limiter *authmw.LoginLimiter
	Cookie  authmw.CookieOptions

	Log     *zap.Logger
	Metrics *metrics.Metrics // optional

	CORSOrigins        []string
	EnableRegistration bool
	RequestTimeout     time.Duration
}

// NewRouter wires every route. Resources sit behind the JWT group and per-route permissions.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Middleware(d.Log), middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.RequestTimeout))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Store, d.Limiter, d.Cookie))
	r.Post("/auth/logout", authmw.LogoutHandler(d.Cookie))
	if d.EnableRegistration {
		r.Post("/auth/register", authmw.RegisterHandler(d.Store))
	}

	// Protected API (JWT → fresh role from the store → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth), authmw.AttachRoleFromStore(d.Store))

		pr.Get("/auth/me", authmw.MeHandler(d.Store))
		pr.Put("/auth/profile", authmw.ProfileHandler(d.Auth, d.Store, d.Cookie))

		pr.Route("/users", func(ur chi.Router) {
			ur.With(rbac.Require("users:read")).Get("/", ListUsersHandler(d.Store))
			ur.With(rbac.Require("users:create")).Post("/", CreateUserHandler(d.Store))
			ur.With(rbac.Require("users:read")).Get("/{id}", GetUserHandler(d.Store))
			ur.With(rbac.Require("users:update")).Put("/{id}", UpdateUserHandler(d.Store))
			ur.With(rbac.Require("users:update")).Put("/{id}/password", ResetPasswordHandler(d.Store))
			ur.With(rbac.Require("users:delete")).Delete("/{id}", DeleteUserHandler(d.Store))
		})

		pr.Route("/students", func(sr chi.Router) {
			sr.With(rbac.Require("students:read")).Get("/", ListStudentsHandler(d.Store))
			sr.With(rbac.Require("students:create")).Post("/", CreateStudentHandler(d.Store))
			sr.With(rbac.Require("students:read")).Get("/classes", ListClassesHandler(d.Store))
			sr.With(rbac.Require("students:create")).Post("/import", ImportStudentsHandler(d.Store))
			sr.With(rbac.Require("students:read")).Get("/{id}", GetStudentHandler(d.Store))
			sr.With(rbac.Require("students:update")).Put("/{id}", UpdateStudentHandler(d.Store))
			sr.With(rbac.Require("students:delete")).Delete("/{id}", DeleteStudentHandler(d.Store))
			sr.With(rbac.Require("assessments:read")).Get("/{id}/assessments", ListStudentAssessmentsHandler(d.Store))
			sr.With(rbac.Require("assessments:update")).Post("/{id}/assessments", SaveStudentAssessmentsHandler(d.Store))
		})

		pr.Route("/criteria", func(cr chi.Router) {
			cr.With(rbac.Require("criteria:read")).Get("/", ListCriteriaHandler(d.Store))
			cr.With(rbac.Require("criteria:create")).Post("/", CreateCriterionHandler(d.Store))
			cr.With(rbac.Require("criteria:read")).Get("/summary", CriteriaSummaryHandler(d.Store))
			cr.With(rbac.Require("criteria:read")).Get("/{id}", GetCriterionHandler(d.Store))
			cr.With(rbac.Require("criteria:update")).Put("/{id}", UpdateCriterionHandler(d.Store))
			cr.With(rbac.Require("criteria:delete")).Delete("/{id}", DeleteCriterionHandler(d.Store))
		})

		pr.Route("/assessments", func(ar chi.Router) {
			ar.With(rbac.Require("assessments:read")).Get("/", ListAssessmentsHandler(d.Store))
			ar.With(rbac.Require("assessments:create")).Post("/", CreateAssessmentHandler(d.Store))
			ar.With(rbac.Require("assessments:read")).Get("/{id}", GetAssessmentHandler(d.Store))
			ar.With(rbac.Require("assessments:update")).Put("/{id}", UpdateAssessmentHandler(d.Store))
			ar.With(rbac.Require("assessments:delete")).Delete("/{id}", DeleteAssessmentHandler(d.Store))
		})

		pr.Route("/results", func(rr chi.Router) {
			rr.With(rbac.Require("results:read")).Get("/", ResultsHandler(d.Ranker))
			rr.With(rbac.Require("results:read")).Get("/export.csv", ExportResultsCSVHandler(d.Ranker))
			if d.Blobs != nil {
				rr.Route("/reports", func(rp chi.Router) { MountReports(rp, d.Ranker, d.Blobs) })
			}
		})

		pr.With(rbac.Require("audit:read")).Get("/audit", AuditHandler(d.Events))
	})

	return r
}
