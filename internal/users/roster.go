package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/examportal/internal/exam"
)

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

type roster struct{ s *Store }

// Roster exposes the users table as the exam roster.
func (s *Store) Roster() exam.Roster { return roster{s: s} }

// ListStudents returns every user with the student role, whatever their
// approval status.
func (r roster) ListStudents(ctx context.Context) ([]exam.Student, error) {
	us, err := r.s.ListByRole(ctx, RoleStudent)
	if err != nil {
		return nil, err
	}
	out := make([]exam.Student, 0, len(us))
	for _, u := range us {
		out = append(out, exam.Student{ID: u.ID, Name: u.Name, Email: u.Email, PRN: u.PRN})
	}
	return out, nil
}

func (r roster) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done || id == "" {
			continue
		}
		u, err := r.s.Get(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = u.Name
	}
	return out, nil
}
