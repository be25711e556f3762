package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgErrUniqueViolation = "23505"

var (
	ErrInvalidInput = errors.New("name and email are required")
	ErrDuplicate    = errors.New("email already exists")
)

// DirectoryUser is the public row shape of the users directory.
type DirectoryUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store wraps the Postgres pool and the non-auth queries on users.
type Store struct {
	db *sql.DB
}

// Open creates a pooled connection via the pgx stdlib driver. It does not dial.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping runs a trivial query, mirroring "SELECT 1" health checks.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, `select 1`).Scan(&one)
}

func (s *Store) ListUsers(ctx context.Context) ([]DirectoryUser, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name, email from users order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]DirectoryUser, 0)
	for rows.Next() {
		var u DirectoryUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a directory entry without credentials.
func (s *Store) CreateUser(ctx context.Context, name, email string) (DirectoryUser, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return DirectoryUser{}, ErrInvalidInput
	}
	u := DirectoryUser{Name: name, Email: email}
	err := s.db.QueryRowContext(ctx,
		`insert into users(name, email) values($1,$2) returning id`, name, email,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return DirectoryUser{}, ErrDuplicate
		}
		return DirectoryUser{}, err
	}
	return u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n)
	return n, err
}
