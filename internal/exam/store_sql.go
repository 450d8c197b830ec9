package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLStore keeps tests and submissions in the schema created by db.Open.
// Placeholders are $N, accepted by both sqlite and postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const testColumns = `id,name,test_date,start_time,end_time,total_marks,created_by,questions_json,created_at,updated_at`

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests (`+testColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.Name, t.Date, t.StartTime, t.EndTime, t.TotalMarks, t.CreatedBy, string(qj),
		t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("exam: insert test: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (Test, error) {
	var t Test
	var qjson string
	var created, updated int64
	if err := row.Scan(&t.ID, &t.Name, &t.Date, &t.StartTime, &t.EndTime, &t.TotalMarks,
		&t.CreatedBy, &qjson, &created, &updated); err != nil {
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return Test{}, fmt.Errorf("exam: decode questions of %s: %w", t.ID, err)
	}
	t.CreatedAt = time.UnixMilli(created).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id=$1`, id)
	t, err := scanTest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, fmt.Errorf("exam: get test: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("exam: list tests: %w", err)
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("exam: list tests: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTest removes the test only; submissions keep their test_id.
func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("exam: delete test: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("exam: delete test: %w", err)
	}
	if n == 0 {
		return ErrTestNotFound
	}
	return nil
}

const submissionColumns = `id,student_id,test_id,answers_json,score,submitted_at`

func scanSubmission(row rowScanner) (Submission, error) {
	var sub Submission
	var ajson string
	var at int64
	if err := row.Scan(&sub.ID, &sub.StudentID, &sub.TestID, &ajson, &sub.Score, &at); err != nil {
		return Submission{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &sub.Answers); err != nil || sub.Answers == nil {
		sub.Answers = []Answer{}
	}
	sub.SubmittedAt = time.UnixMilli(at).UTC()
	return sub, nil
}

func (s *SQLStore) FindSubmission(ctx context.Context, studentID, testID string) (Submission, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE student_id=$1 AND test_id=$2`,
		studentID, testID)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, false, nil
		}
		return Submission{}, false, fmt.Errorf("exam: find submission: %w", err)
	}
	return sub, true, nil
}

// InsertSubmission relies on the unique index over (student_id, test_id):
// a conflicting row is skipped and reported as a duplicate.
func (s *SQLStore) InsertSubmission(ctx context.Context, sub Submission) error {
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO submissions (`+submissionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (student_id, test_id) DO NOTHING`,
		sub.ID, sub.StudentID, sub.TestID, string(aj), sub.Score, sub.SubmittedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("exam: insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("exam: insert submission: %w", err)
	}
	if n == 0 {
		return ErrDuplicateSubmission
	}
	return nil
}

func (s *SQLStore) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	return s.listSubmissions(ctx, `student_id=$1`, studentID)
}

func (s *SQLStore) ListSubmissionsByTest(ctx context.Context, testID string) ([]Submission, error) {
	return s.listSubmissions(ctx, `test_id=$1`, testID)
}

func (s *SQLStore) listSubmissions(ctx context.Context, where string, arg string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE `+where+` ORDER BY submitted_at DESC, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("exam: list submissions: %w", err)
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("exam: list submissions: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
