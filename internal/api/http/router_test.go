package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/examportal/internal/api/http"
	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/db"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/storage"
	syncx "github.com/mind-engage/examportal/internal/sync"
	"github.com/mind-engage/examportal/internal/users"
)

// 2026-10-15 09:30 UTC
var clock = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type env struct {
	t          *testing.T
	handler    http.Handler
	authSvc    *auth.AuthService
	users      *users.Store
	archiveDir string
	teacher    string // bearer token
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	h, err := db.Open(ctx, db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	us := users.NewStore(h)
	hash, err := bcrypt.GenerateFromPassword([]byte("teach"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, us.EnsureTeacher(ctx, "rao@example.com", "Ms. Rao", string(hash)))

	events := syncx.NewEventRepo(h, "test")
	svc := exam.NewService(exam.NewSQLStore(h), us.Roster(),
		exam.WithClock(func() time.Time { return clock }),
		exam.WithEvents(events),
	)
	archiveDir := t.TempDir()
	archive, err := storage.NewFSArchive(archiveDir)
	require.NoError(t, err)

	e := &env{
		t:       t,
		authSvc: auth.NewAuthService("test-secret", time.Hour),
		users:   us,
		handler: nil,
	}
	e.archiveDir = archiveDir
	e.handler = api.NewRouter(api.Deps{
		DB:          h,
		Auth:        e.authSvc,
		Users:       us,
		Exams:       svc,
		Events:      events,
		Archive:     archive,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	e.teacher = e.login("rao@example.com", "teach")
	return e
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(email, password string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Token
}

// student signs up and logs in, returning the user id and token.
func (e *env) student(name, email, prn string) (string, string) {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/users/signup", "", map[string]string{
		"name": name, "email": email, "password": "pw-" + prn, "prn": prn,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var u users.User
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u.ID, e.login(email, "pw-"+prn)
}

func newTestBody(date string) map[string]any {
	return map[string]any{
		"name": "Algebra", "date": date, "startTime": "09:00", "endTime": "10:00", "totalMarks": 2,
		"questions": []map[string]any{
			{"id": "q1", "questionText": "x+1=2, x?", "options": []string{"0", "1", "2", "3"}, "correctAnswer": "1"},
			{"id": "q2", "questionText": "2x=4, x?", "options": []string{"1", "2", "3", "4"}, "correctAnswer": "2"},
		},
	}
}

func (e *env) createTest(date string) exam.Test {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/tests", e.teacher, newTestBody(date))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var tt exam.Test
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &tt))
	return tt
}

type errBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var b errBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	return b
}

func TestHealth(t *testing.T) {
	e := setup(t)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestAuthGuards(t *testing.T) {
	e := setup(t)
	_, stu := e.student("Asha", "asha@example.com", "PRN1")

	rec := e.do(http.MethodGet, "/tests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeErr(t, rec).Error)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/tests", "not-a-jwt", nil).Code)

	ghost, err := e.authSvc.IssueJWT("ghost", users.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/tests", ghost, nil).Code)

	// the stored role wins over the token's claim
	forged, err := e.authSvc.IssueJWT(e.userID(stu), users.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/tests", forged, newTestBody("2026-10-15")).Code)

	rec = e.do(http.MethodPost, "/tests", stu, newTestBody("2026-10-15"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeErr(t, rec).Error)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/submissions", e.teacher, map[string]any{"testId": "x"}).Code)

	rec = e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "asha@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func (e *env) userID(token string) string {
	e.t.Helper()
	rec := e.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var u users.User
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u.ID
}

func TestSignupConflict(t *testing.T) {
	e := setup(t)
	e.student("Asha", "asha@example.com", "PRN1")
	rec := e.do(http.MethodPost, "/users/signup", "", map[string]string{
		"name": "Other", "email": "asha@example.com", "password": "x", "prn": "PRN9",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeErr(t, rec).Error)
}

func TestCreateTest_Validation(t *testing.T) {
	e := setup(t)
	body := newTestBody("2026-10-15")
	body["totalMarks"] = 0
	body["questions"] = []map[string]any{
		{"questionText": "?", "options": []string{"a", "b", "c"}, "correctAnswer": "z"},
	}
	rec := e.do(http.MethodPost, "/tests", e.teacher, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	eb := decodeErr(t, rec)
	assert.Equal(t, "validation", eb.Error)
	assert.Contains(t, eb.Fields, "totalMarks")
	assert.Contains(t, eb.Fields, "questions[0].options")
	assert.Contains(t, eb.Fields, "questions[0].correctAnswer")

	rec = e.do(http.MethodGet, "/tests", e.teacher, nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestAnswerKeysHiddenFromStudents(t *testing.T) {
	e := setup(t)
	tt := e.createTest("2026-10-15")
	_, stu := e.student("Asha", "asha@example.com", "PRN1")

	rec := e.do(http.MethodGet, "/tests/"+tt.ID, stu, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correctAnswer")

	rec = e.do(http.MethodGet, "/tests", stu, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correctAnswer")
	assert.Contains(t, rec.Body.String(), `"creatorName":"Ms. Rao"`)

	rec = e.do(http.MethodGet, "/tests/"+tt.ID, e.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"correctAnswer":"1"`)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/tests/missing", stu, nil).Code)
}

func TestSubmitFlow(t *testing.T) {
	e := setup(t)
	tt := e.createTest("2026-10-15")
	ashaID, asha := e.student("Asha", "asha@example.com", "PRN1")
	bilalID, _ := e.student("Bilal", "bilal@example.com", "PRN2")

	body := map[string]any{
		"testId":    tt.ID,
		"studentId": bilalID, // ignored: the token decides
		"answers": []map[string]string{
			{"questionId": "q1", "selectedOption": "1"},
			{"questionId": "q2", "selectedOption": "3"},
		},
	}
	rec := e.do(http.MethodPost, "/submissions", asha, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res exam.SubmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Test submitted successfully!", res.Message)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, ashaID, res.Submission.StudentID)

	rec = e.do(http.MethodPost, "/submissions", asha, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	eb := decodeErr(t, rec)
	assert.Equal(t, "duplicate_submission", eb.Error)
	assert.Equal(t, "you have already submitted this test", eb.Message)

	rec = e.do(http.MethodPost, "/submissions", asha, map[string]any{"testId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErr(t, rec).Error)

	rec = e.do(http.MethodGet, "/submissions/mine", asha, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []exam.StudentSubmission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Test)
	assert.Equal(t, "Algebra", mine[0].Test.Name)

	rec = e.do(http.MethodGet, "/tests/"+tt.ID+"/results", e.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results exam.Results
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results.Submitted, 1)
	assert.Equal(t, "Asha", results.Submitted[0].Student.Name)
	require.Len(t, results.NotSubmitted, 1)
	assert.Equal(t, bilalID, results.NotSubmitted[0].ID)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/tests/"+tt.ID+"/results", asha, nil).Code)

	// deleting the test leaves the submission with a null test
	rec = e.do(http.MethodDelete, "/tests/"+tt.ID, e.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/tests/"+tt.ID, e.teacher, nil).Code)
	rec = e.do(http.MethodGet, "/submissions/mine", asha, nil)
	assert.Contains(t, rec.Body.String(), `"test":null`)
}

func TestSubmit_OutOfWindowAndValidation(t *testing.T) {
	e := setup(t)
	tomorrow := e.createTest("2026-10-16")
	_, stu := e.student("Asha", "asha@example.com", "PRN1")

	rec := e.do(http.MethodPost, "/submissions", stu, map[string]any{"testId": tomorrow.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "out_of_window", decodeErr(t, rec).Error)

	rec = e.do(http.MethodPost, "/submissions", stu, map[string]any{
		"testId":  tomorrow.ID,
		"answers": []map[string]string{{"questionId": "q1"}, {"questionId": "q1"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	eb := decodeErr(t, rec)
	assert.Equal(t, "validation", eb.Error)
	assert.Contains(t, eb.Fields, "answers[1].questionId")

	req := httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+stu)
	out := httptest.NewRecorder()
	e.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestStudentAdministration(t *testing.T) {
	e := setup(t)
	id, _ := e.student("Asha", "asha@example.com", "PRN1")

	rec := e.do(http.MethodGet, "/users/students", e.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, users.StatusPending, list[0].Status)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(http.MethodPut, "/users/"+id+"/status", e.teacher, map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"approved"`)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/users/"+id+"/status", e.teacher, map[string]string{"status": "gone"}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/users/nobody/status", e.teacher, map[string]string{"status": "approved"}).Code)
}

func TestBulkUpsert_MultipartCSV(t *testing.T) {
	e := setup(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "name,email,prn,password\nChen,chen@example.com,PRN3,pw3\nDana,dana@example.com,PRN4,pw4\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/bulk", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.teacher)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"inserted":2,"updated":0}`, rec.Body.String())

	// imported students are approved and can log in
	tok := e.login("chen@example.com", "pw3")
	assert.NotEmpty(t, tok)

	var archived []string
	require.NoError(t, filepath.WalkDir(e.archiveDir, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			archived = append(archived, p)
		}
		return err
	}))
	require.Len(t, archived, 1)
	assert.True(t, strings.HasSuffix(archived[0], "roster.csv"))
}

func TestBulkUpsert_JSONBody(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodPost, "/users/bulk", e.teacher, []map[string]string{
		{"name": "Chen", "email": "chen@example.com", "prn": "PRN3"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "new user without password")

	rec = e.do(http.MethodPost, "/users/bulk", e.teacher, []map[string]string{})
	assert.JSONEq(t, `{"inserted":0,"updated":0}`, rec.Body.String())
}

func TestEventsFeed(t *testing.T) {
	e := setup(t)
	tt := e.createTest("2026-10-15")
	_, stu := e.student("Asha", "asha@example.com", "PRN1")
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/submissions", stu, map[string]any{"testId": tt.ID}).Code)

	rec := e.do(http.MethodGet, "/events?after=0&limit=10", e.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []syncx.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "test.created", events[0].Type)
	assert.Equal(t, "submission.recorded", events[1].Type)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/events", stu, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/events?after=x", e.teacher, nil).Code)
}
