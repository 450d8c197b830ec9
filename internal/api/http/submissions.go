package http

import (
	"net/http"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/exam"
)

type submitRequest struct {
	TestID  string        `json:"testId"`
	Answers []exam.Answer `json:"answers"`
}

// SubmitHandler records the caller's answers. The student id always comes
// from the token, never from the body.
func SubmitHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.Submit(r.Context(), auth.SubjectFromContext(r.Context()), req.TestID, req.Answers)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func MySubmissionsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := svc.MySubmissions(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}
