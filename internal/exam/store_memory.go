package exam

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu          sync.RWMutex
	tests       map[string]Test
	testOrder   []string
	submissions []Submission
	byKey       map[submissionKey]int // index into submissions
}

type submissionKey struct{ student, test string }

// NewInMemoryStore returns a Store kept in process memory.
func NewInMemoryStore() Store {
	return &memoryStore{
		tests: map[string]Test{},
		byKey: map[submissionKey]int{},
	}
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[t.ID]; !ok {
		m.testOrder = append(m.testOrder, t.ID)
	}
	m.tests[t.ID] = cloneTest(t)
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrTestNotFound
	}
	return cloneTest(t), nil
}

func (m *memoryStore) ListTests(_ context.Context) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Test, 0, len(m.tests))
	for _, id := range m.testOrder {
		if t, ok := m.tests[id]; ok {
			out = append(out, cloneTest(t))
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return ErrTestNotFound
	}
	delete(m.tests, id)
	for i, tid := range m.testOrder {
		if tid == id {
			m.testOrder = append(m.testOrder[:i], m.testOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryStore) FindSubmission(_ context.Context, studentID, testID string) (Submission, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byKey[submissionKey{studentID, testID}]
	if !ok {
		return Submission{}, false, nil
	}
	return cloneSubmission(m.submissions[i]), true, nil
}

func (m *memoryStore) InsertSubmission(_ context.Context, s Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := submissionKey{s.StudentID, s.TestID}
	if _, ok := m.byKey[k]; ok {
		return ErrDuplicateSubmission
	}
	m.byKey[k] = len(m.submissions)
	m.submissions = append(m.submissions, cloneSubmission(s))
	return nil
}

func (m *memoryStore) ListSubmissionsByStudent(_ context.Context, studentID string) ([]Submission, error) {
	return m.filter(func(s Submission) bool { return s.StudentID == studentID }), nil
}

func (m *memoryStore) ListSubmissionsByTest(_ context.Context, testID string) ([]Submission, error) {
	return m.filter(func(s Submission) bool { return s.TestID == testID }), nil
}

// filter returns matches newest first, matching the SQL store.
func (m *memoryStore) filter(keep func(Submission) bool) []Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Submission{}
	for _, s := range m.submissions {
		if keep(s) {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneTest(t Test) Test {
	qs := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	t.Questions = qs
	return t
}

func cloneSubmission(s Submission) Submission {
	answers := make([]Answer, len(s.Answers))
	copy(answers, s.Answers)
	s.Answers = answers
	return s
}
