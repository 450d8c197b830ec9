package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/users"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, class, msg string) {
	writeJSON(w, status, errorBody{Error: class, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "bad json")
		return false
	}
	return true
}

// fail maps a domain error to its HTTP response. Unknown errors are logged
// and answered with a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *exam.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			fields[f.Field] = f.Error
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "validation failed", Fields: fields})
	case errors.Is(err, exam.ErrDuplicateSubmission):
		writeError(w, http.StatusBadRequest, "duplicate_submission", exam.ErrDuplicateSubmission.Error())
	case errors.Is(err, exam.ErrTestNotFound):
		writeError(w, http.StatusNotFound, "not_found", exam.ErrTestNotFound.Error())
	case errors.Is(err, exam.ErrOutOfWindow):
		writeError(w, http.StatusForbidden, "out_of_window", err.Error())
	case errors.Is(err, users.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", users.ErrUserNotFound.Error())
	case errors.Is(err, users.ErrUserExists):
		writeError(w, http.StatusConflict, "conflict", users.ErrUserExists.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", users.ErrInvalidCredentials.Error())
	case errors.Is(err, users.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal", "Server Error")
	}
}
