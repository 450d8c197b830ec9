package http

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/rbac"
	"github.com/mind-engage/examportal/internal/storage"
	syncx "github.com/mind-engage/examportal/internal/sync"
	"github.com/mind-engage/examportal/internal/users"
)

type Deps struct {
	DB          *sql.DB // readiness probe; optional
	Auth        *auth.AuthService
	Users       *users.Store
	Exams       *exam.Service
	Events      *syncx.EventRepo // optional
	Archive     storage.Archive  // bulk import uploads; optional
	CORSOrigins []string
	Timeout     time.Duration
}

// NewRouter mounts every route. Protected routes run JWT → role from DB → RBAC.
func NewRouter(d Deps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "internal", "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/auth/login", LoginHandler(d.Users, d.Auth))
	r.Post("/users/signup", SignupHandler(d.Users))

	roles := auth.RoleLookupFunc(func(ctx context.Context, id string) (string, error) {
		role, err := d.Users.RoleOf(ctx, id)
		if errors.Is(err, users.ErrUserNotFound) {
			return "", auth.ErrUnknownUser
		}
		return role, err
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromDB(roles))

		pr.With(rbac.Require(rbac.PermSelfView)).Get("/users/me", MeHandler(d.Users))
		pr.With(rbac.Require(rbac.PermUsersList)).Get("/users/students", ListStudentsHandler(d.Users))
		pr.With(rbac.Require(rbac.PermUsersStatus)).Put("/users/{userID}/status", SetStudentStatusHandler(d.Users))
		pr.With(rbac.Require(rbac.PermUsersBulk)).Post("/users/bulk", BulkUpsertUsersHandler(d.Users, d.Archive))

		pr.With(rbac.Require(rbac.PermTestCreate)).Post("/tests", CreateTestHandler(d.Exams))
		pr.With(rbac.Require(rbac.PermTestView)).Get("/tests", ListTestsHandler(d.Exams))
		pr.With(rbac.Require(rbac.PermTestView)).Get("/tests/{testID}", GetTestHandler(d.Exams))
		pr.With(rbac.Require(rbac.PermTestDelete)).Delete("/tests/{testID}", DeleteTestHandler(d.Exams))
		pr.With(rbac.Require(rbac.PermTestResults)).Get("/tests/{testID}/results", TestResultsHandler(d.Exams))

		pr.With(rbac.Require(rbac.PermSubmissionCreate)).Post("/submissions", SubmitHandler(d.Exams))
		pr.With(rbac.Require(rbac.PermSubmissionOwn)).Get("/submissions/mine", MySubmissionsHandler(d.Exams))

		if d.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsView)).Get("/events", EventsHandler(d.Events))
		}
	})
	return r
}
