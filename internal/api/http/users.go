package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/storage"
	"github.com/mind-engage/examportal/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

func LoginHandler(us *users.Store, a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "validation", "email and password required")
			return
		}
		u, err := us.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			fail(w, r, err)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{Token: tok, User: u})
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PRN      string `json:"prn"`
}

// SignupHandler registers a student awaiting approval.
func SignupHandler(us *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := us.Register(r.Context(), req.Name, req.Email, req.Password, req.PRN)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func MeHandler(us *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := us.Get(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func ListStudentsHandler(us *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := us.ListByRole(r.Context(), users.RoleStudent)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func SetStudentStatusHandler(us *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := us.SetStatus(r.Context(), chi.URLParam(r, "userID"), strings.ToLower(strings.TrimSpace(req.Status)))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// maxUpload caps bulk import files.
const maxUpload = 5 << 20

// BulkUpsertUsersHandler accepts a JSON array body, or a multipart "file"
// holding either a JSON array or CSV. Uploaded files are kept in archive
// when one is configured.
func BulkUpsertUsersHandler(us *users.Store, archive storage.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []users.Row
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, hdr, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation", "file required")
				return
			}
			defer f.Close()
			raw, err := io.ReadAll(io.LimitReader(f, maxUpload))
			if err != nil {
				fail(w, r, err)
				return
			}
			body := bytes.TrimSpace(raw)
			if len(body) == 0 {
				writeError(w, http.StatusBadRequest, "validation", "empty file")
				return
			}
			if archive != nil {
				reqID := strings.NewReplacer("/", "_", "\\", "_").Replace(middleware.GetReqID(r.Context()))
				key := path.Join(time.Now().UTC().Format("2006-01-02"), reqID+"-"+path.Base(hdr.Filename))
				if _, err := archive.Put(r.Context(), key, bytes.NewReader(raw)); err != nil {
					log.Printf("archive upload %s: %v", key, err)
				}
			}
			// sniff CSV vs JSON by the first non-space byte
			if body[0] == '[' {
				if err := json.Unmarshal(body, &rows); err != nil {
					writeError(w, http.StatusBadRequest, "validation", "bad json")
					return
				}
			} else {
				rows, err = users.ParseCSV(bytes.NewReader(body))
				if err != nil {
					writeError(w, http.StatusBadRequest, "validation", "bad csv: "+err.Error())
					return
				}
			}
		} else if !decodeJSON(w, r, &rows) {
			return
		}

		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}
		ins, upd, err := us.BulkUpsert(r.Context(), rows)
		if err != nil {
			fail(w, r, err)
			return
		}
		log.Printf("bulk upsert by %s: inserted=%d updated=%d", auth.SubjectFromContext(r.Context()), ins, upd)
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}
