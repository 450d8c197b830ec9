package users

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Row is one entry of a bulk import.
type Row struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"` // usually "student"
	PRN      string `json:"prn,omitempty"`
	Password string `json:"password,omitempty"` // required for new users
}

// ParseCSV reads rows with a header naming at least name and email.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"name", "email"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	col := func(rec []string, k string) string {
		if i, ok := idx[k]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Name:     col(rec, "name"),
			Email:    col(rec, "email"),
			Role:     strings.ToLower(col(rec, "role")),
			PRN:      col(rec, "prn"),
			Password: col(rec, "password"),
		})
	}
	return rows, nil
}

// BulkUpsert inserts or updates users keyed by email in one transaction.
// Imported students start out approved. Rows are checked and passwords
// hashed before the transaction opens.
func (s *Store) BulkUpsert(ctx context.Context, rows []Row) (inserted, updated int, err error) {
	rows = append([]Row(nil), rows...)
	hashes := make([]string, len(rows))
	for i := range rows {
		r := &rows[i]
		r.Email = normEmail(r.Email)
		r.Name = strings.TrimSpace(r.Name)
		if r.Role == "" {
			r.Role = RoleStudent
		}
		if r.Role != RoleStudent && r.Role != RoleTeacher {
			return 0, 0, fmt.Errorf("%w: row %d: invalid role %q", ErrInvalidInput, i+1, r.Role)
		}
		if r.Email == "" || r.Name == "" {
			return 0, 0, fmt.Errorf("%w: row %d: name and email are required", ErrInvalidInput, i+1)
		}
		if r.Role == RoleStudent && r.PRN == "" {
			return 0, 0, fmt.Errorf("%w: row %d: prn is required for students", ErrInvalidInput, i+1)
		}
		if r.Role == RoleTeacher {
			r.PRN = ""
		}
		if r.Password != "" {
			if hashes[i], err = hashPassword(r.Password); err != nil {
				return 0, 0, err
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	for i, r := range rows {
		phash := hashes[i]
		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email=$1`, r.Email).Scan(&id)
		switch {
		case err == nil:
			if phash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET name=$1, role=$2, prn=$3, password_hash=$4 WHERE id=$5`,
					r.Name, r.Role, nullable(r.PRN), phash, id)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET name=$1, role=$2, prn=$3 WHERE id=$4`,
					r.Name, r.Role, nullable(r.PRN), id)
			}
			if err != nil {
				return inserted, updated, fmt.Errorf("users: row %d: %w", i+1, err)
			}
			updated++
		case isNoRows(err):
			if phash == "" {
				return inserted, updated, fmt.Errorf("%w: row %d: password required for new user %s", ErrInvalidInput, i+1, r.Email)
			}
			status := ""
			if r.Role == RoleStudent {
				status = StatusApproved
			}
			err = s.insert(ctx, tx, User{
				ID:           uuid.NewString(),
				Name:         r.Name,
				Email:        r.Email,
				Role:         r.Role,
				PRN:          r.PRN,
				Status:       status,
				CreatedAt:    time.Now().UTC(),
				passwordHash: phash,
			})
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return inserted, updated, nil
}
