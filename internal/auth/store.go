package auth

import (
	"context"
	"time"
)

// UserStore persists User records. Implementations return ErrNotFound for
// missing rows and ErrAlreadyExists when the email is taken.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// SessionRegistry keeps at most one Session per user with an expiry.
// Get reports absence with ok=false and a nil error; Delete of a missing
// record is not an error.
type SessionRegistry interface {
	Put(ctx context.Context, userID int64, s Session, ttl time.Duration) error
	Get(ctx context.Context, userID int64) (s Session, ok bool, err error)
	Delete(ctx context.Context, userID int64) error
}
