package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/examportal/internal/db"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	bcryptCost = 12
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this email or PRN already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid user data")
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	PRN       string    `json:"prn,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	passwordHash string
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const userColumns = `id,name,email,role,COALESCE(prn,''),status,created_at,password_hash`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PRN, &u.Status, &created, &u.passwordHash); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

var hashPassword = func(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a pending student account.
func (s *Store) Register(ctx context.Context, name, email, password, prn string) (User, error) {
	name, email, prn = strings.TrimSpace(name), normEmail(email), strings.TrimSpace(prn)
	if name == "" || email == "" || password == "" || prn == "" {
		return User{}, fmt.Errorf("%w: name, email, password and prn are required", ErrInvalidInput)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         RoleStudent,
		PRN:          prn,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		passwordHash: hash,
	}
	if err := s.insert(ctx, s.db, u); err != nil {
		return User{}, err
	}
	return u, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, ex execer, u User) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, prn, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Name, u.Email, u.passwordHash, u.Role, nullable(u.PRN), u.Status, u.CreatedAt.Unix())
	if db.IsUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

// Authenticate checks email and password.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, normEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("users: authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) Get(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("users: get: %w", err)
	}
	return u, nil
}

// RoleOf returns the stored role of id.
func (s *Store) RoleOf(ctx context.Context, id string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return role, err
}

// ListByRole lists users with role ordered by name; all users when role is empty.
func (s *Store) ListByRole(ctx context.Context, role string) ([]User, error) {
	var rows *sql.Rows
	var err error
	if role == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY name, id`, role)
	}
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetStatus approves or rejects a student.
func (s *Store) SetStatus(ctx context.Context, id, status string) (User, error) {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return User{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET status=$1 WHERE id=$2 AND role=$3`, status, id, RoleStudent)
	if err != nil {
		return User{}, fmt.Errorf("users: set status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return User{}, fmt.Errorf("users: set status: %w", err)
	} else if n == 0 {
		return User{}, ErrUserNotFound
	}
	return s.Get(ctx, id)
}

// EnsureTeacher creates a teacher account with a pre-hashed password unless
// the email is already taken.
func (s *Store) EnsureTeacher(ctx context.Context, email, name, bcryptHash string) error {
	email = normEmail(email)
	if email == "" || bcryptHash == "" {
		return fmt.Errorf("%w: email and password hash are required", ErrInvalidInput)
	}
	if name == "" {
		name = email
	}
	err := s.insert(ctx, s.db, User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         RoleTeacher,
		CreatedAt:    time.Now().UTC(),
		passwordHash: bcryptHash,
	})
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}
