package auth

import "time"

// User is the persisted identity of a registered person. PasswordHash never
// leaves this package's callers through Public.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the subset of User fields safe to return to clients.
type PublicUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips secret fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID int64
	Email  string
	Name   string
}

// Session is the server-side record of an active login.
type Session struct {
	UserID  int64     `json:"userId"`
	Email   string    `json:"email"`
	LoginAt time.Time `json:"loginAt"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      PublicUser
}
