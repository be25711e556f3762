package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestListUsers(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select id, name, email from users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(int64(1), "Alice", "alice@example.com").
			AddRow(int64(2), "Bob", "bob@example.com"))

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[1].Email != "bob@example.com" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestListUsersEmptyIsNotNil(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select id, name, email from users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if users == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestCreateUser(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("insert into users").
		WithArgs("Carol", "carol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	u, err := s.CreateUser(context.Background(), " Carol ", "Carol@Example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 5 || u.Email != "carol@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserErrors(t *testing.T) {
	s, mock := newMock(t)
	if _, err := s.CreateUser(context.Background(), "", "x@y.z"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	mock.ExpectQuery("insert into users").WillReturnError(&pgconn.PgError{Code: "23505"})
	if _, err := s.CreateUser(context.Background(), "Dup", "dup@example.com"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCountUsers(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`select count\(\*\) from users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := s.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 42 {
		t.Fatalf("unexpected count %d", n)
	}
}

func TestPing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
