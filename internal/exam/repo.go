package exam

import "context"

// Store holds tests and the submission ledger.
type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error) // full test, with answer keys
	ListTests(ctx context.Context) ([]Test, error)
	DeleteTest(ctx context.Context, id string) error

	// FindSubmission reports whether studentID already submitted testID.
	FindSubmission(ctx context.Context, studentID, testID string) (Submission, bool, error)
	// InsertSubmission stores s unless a submission for the same
	// (student, test) exists, in which case it returns ErrDuplicateSubmission.
	// The check and the write are one atomic step.
	InsertSubmission(ctx context.Context, s Submission) error
	ListSubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
	ListSubmissionsByTest(ctx context.Context, testID string) ([]Submission, error)
}

// Roster is the external directory of users.
type Roster interface {
	ListStudents(ctx context.Context) ([]Student, error)
	// DisplayNames maps user ids to names; unknown ids are left out.
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

// EventSink records core mutations. Failures never undo the mutation.
type EventSink interface {
	Record(ctx context.Context, typ, key string, data any) error
}
