package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/examportal/internal/grading"
)

// Service runs the test catalogue, the submission workflow and results.
// Callers pass the acting user's id explicitly on every call.
type Service struct {
	store  Store
	roster Roster
	events EventSink

	now           func() time.Time
	loc           *time.Location
	enforceWindow bool
	grace         time.Duration
}

type Option func(*Service)

// WithClock overrides the server clock.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone a test's date and HH:MM times are read in.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithWindowEnforcement toggles rejecting submissions outside a test's
// scheduled window. Off reproduces the client-trusted behaviour.
func WithWindowEnforcement(on bool) Option { return func(s *Service) { s.enforceWindow = on } }

// WithGrace extends the close of every window by d.
func WithGrace(d time.Duration) Option { return func(s *Service) { s.grace = d } }

func WithEvents(e EventSink) Option { return func(s *Service) { s.events = e } }

func NewService(store Store, roster Roster, opts ...Option) *Service {
	s := &Service{
		store:         store,
		roster:        roster,
		now:           time.Now,
		loc:           time.UTC,
		enforceWindow: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateTest validates and stores a new test authored by creatorID.
func (s *Service) CreateTest(ctx context.Context, in NewTest, creatorID string) (Test, error) {
	if err := ValidateNewTest(in); err != nil {
		return Test{}, err
	}
	now := s.now().UTC()
	t := Test{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Date:       in.Date,
		StartTime:  clockHHMM(in.StartTime),
		EndTime:    clockHHMM(in.EndTime),
		TotalMarks: in.TotalMarks,
		CreatedBy:  creatorID,
		Questions:  make([]Question, len(in.Questions)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, q := range in.Questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.Options = append([]string(nil), q.Options...)
		t.Questions[i] = q
	}
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	s.record(ctx, "test.created", t.ID, map[string]any{"createdBy": creatorID, "questions": len(t.Questions)})
	return t, nil
}

// GetTest returns the full test, answer keys included.
func (s *Service) GetTest(ctx context.Context, id string) (Test, error) {
	return s.store.GetTest(ctx, id)
}

// ListTests returns every test with its creator's name, ordered by schedule.
func (s *Service) ListTests(ctx context.Context) ([]Test, error) {
	tests, err := s.store.ListTests(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tests))
	for _, t := range tests {
		ids = append(ids, t.CreatedBy)
	}
	names, err := s.roster.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].CreatorName = names[tests[i].CreatedBy]
	}
	sort.SliceStable(tests, func(i, j int) bool {
		a, b := tests[i], tests[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Name < b.Name
	})
	return tests, nil
}

// DeleteTest removes a test. Its submissions are kept.
func (s *Service) DeleteTest(ctx context.Context, id string) error {
	if err := s.store.DeleteTest(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "test.deleted", id, nil)
	return nil
}

// Submit scores and records studentID's answers for testID. Nothing is
// written unless every step before the insert succeeds.
func (s *Service) Submit(ctx context.Context, studentID, testID string, answers []Answer) (SubmissionResult, error) {
	// The insert below is authoritative; this early check keeps "already
	// submitted" ahead of every other failure, malformed answers included.
	if strings.TrimSpace(testID) != "" {
		if _, found, err := s.store.FindSubmission(ctx, studentID, testID); err != nil {
			return SubmissionResult{}, err
		} else if found {
			return SubmissionResult{}, ErrDuplicateSubmission
		}
	}

	if err := ValidateAnswers(testID, answers); err != nil {
		return SubmissionResult{}, err
	}

	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return SubmissionResult{}, err
	}

	now := s.now()
	if s.enforceWindow {
		if err := checkWindow(t, now, s.loc, s.grace); err != nil {
			return SubmissionResult{}, err
		}
	}

	if answers == nil {
		answers = []Answer{}
	}
	questions, responses := t.gradingQuestions(), responsesOf(answers)
	sub := Submission{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		TestID:      testID,
		Answers:     answers,
		Score:       grading.Score(questions, responses),
		SubmittedAt: now.UTC(),
	}
	if err := s.store.InsertSubmission(ctx, sub); err != nil {
		return SubmissionResult{}, err
	}
	s.record(ctx, "submission.recorded", sub.ID, map[string]any{
		"studentId": studentID, "testId": testID, "score": sub.Score,
	})

	return SubmissionResult{
		Message:        "Test submitted successfully!",
		Score:          sub.Score,
		TotalQuestions: len(t.Questions),
		Submission:     sub,
		Review:         grading.Breakdown(questions, responses),
	}, nil
}

// MySubmissions lists studentID's submissions, newest first. Test is nil
// for submissions whose test was deleted.
func (s *Service) MySubmissions(ctx context.Context, studentID string) ([]StudentSubmission, error) {
	subs, err := s.store.ListSubmissionsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	refs := map[string]*TestRef{}
	out := make([]StudentSubmission, 0, len(subs))
	for _, sub := range subs {
		ref, ok := refs[sub.TestID]
		if !ok {
			t, err := s.store.GetTest(ctx, sub.TestID)
			switch {
			case err == nil:
				ref = &TestRef{ID: t.ID, Name: t.Name, Date: t.Date, TotalMarks: t.TotalMarks}
			case errors.Is(err, ErrTestNotFound):
				ref = nil
			default:
				return nil, err
			}
			refs[sub.TestID] = ref
		}
		out = append(out, StudentSubmission{Submission: sub, Test: ref})
	}
	return out, nil
}

// Results splits the roster into students who submitted testID and those
// who have not. Both lists are ordered by name, then id.
func (s *Service) Results(ctx context.Context, testID string) (Results, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Results{}, err
	}
	subs, err := s.store.ListSubmissionsByTest(ctx, testID)
	if err != nil {
		return Results{}, err
	}
	roster, err := s.roster.ListStudents(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("exam: roster: %w", err)
	}

	byID := make(map[string]Student, len(roster))
	for _, st := range roster {
		byID[st.ID] = st
	}
	res := Results{
		TestID:       t.ID,
		TestName:     t.Name,
		TotalMarks:   t.TotalMarks,
		Submitted:    make([]SubmittedStudent, 0, len(subs)),
		NotSubmitted: []Student{},
	}
	done := make(map[string]bool, len(subs))
	for _, sub := range subs {
		st, ok := byID[sub.StudentID]
		if !ok {
			st = Student{ID: sub.StudentID}
		}
		done[sub.StudentID] = true
		res.Submitted = append(res.Submitted, SubmittedStudent{
			Student:      st,
			SubmissionID: sub.ID,
			Score:        sub.Score,
			SubmittedAt:  sub.SubmittedAt,
		})
	}
	for _, st := range roster {
		if !done[st.ID] {
			res.NotSubmitted = append(res.NotSubmitted, st)
		}
	}
	sort.SliceStable(res.Submitted, func(i, j int) bool {
		return studentLess(res.Submitted[i].Student, res.Submitted[j].Student)
	})
	sort.SliceStable(res.NotSubmitted, func(i, j int) bool {
		return studentLess(res.NotSubmitted[i], res.NotSubmitted[j])
	})
	return res, nil
}

func studentLess(a, b Student) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, typ, key, data); err != nil {
		log.Printf("event %s %s: %v", typ, key, err)
	}
}
