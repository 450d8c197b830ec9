package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/rbac"
)

// canSeeKeys reports whether the caller may see answer keys.
func canSeeKeys(r *http.Request) bool {
	return rbac.Allowed(r.Context(), rbac.PermTestAnswerKeys)
}

func CreateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.NewTest
		if !decodeJSON(w, r, &in) {
			return
		}
		t, err := svc.CreateTest(r.Context(), in, auth.SubjectFromContext(r.Context()))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tests, err := svc.ListTests(r.Context())
		if err != nil {
			fail(w, r, err)
			return
		}
		if !canSeeKeys(r) {
			for i := range tests {
				tests[i] = tests[i].ForStudent()
			}
		}
		writeJSON(w, http.StatusOK, tests)
	}
}

func GetTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			fail(w, r, err)
			return
		}
		if !canSeeKeys(r) {
			t = t.ForStudent()
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func DeleteTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTest(r.Context(), chi.URLParam(r, "testID")); err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Test removed"})
	}
}

func TestResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Results(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
