package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"securestack.dev/internal/obs"
)

// Service implements the register/login/logout/authenticate/profile use cases.
// It holds no per-request state; all mutation goes to the injected stores.
type Service struct {
	users    UserStore
	sessions SessionRegistry
	tokens   *TokenIssuer
	hasher   *Hasher

	tokenTTL       time.Duration
	sessionTTL     time.Duration
	requireSession bool
	now            func() time.Time
	log            logrus.FieldLogger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithTokenTTL configures the lifetime of tokens issued at login.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithSessionTTL configures the lifetime of session records written at login.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithSessionEnforcement makes Authenticate require a live session record,
// so Logout revokes outstanding tokens. Off by default.
func WithSessionEnforcement(on bool) ServiceOption {
	return func(s *Service) error {
		s.requireSession = on
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithLogger overrides the logger used for internal failures.
func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.log = l
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(users UserStore, sessions SessionRegistry, tokens *TokenIssuer, hasher *Hasher, opts ...ServiceOption) (*Service, error) {
	if users == nil || sessions == nil || tokens == nil {
		return nil, errors.New("auth: user store, session registry and token issuer are required")
	}
	if hasher == nil {
		hasher = NewHasher(DefaultCost)
	}
	svc := &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		hasher:     hasher,
		tokenTTL:   DefaultTokenTTL,
		sessionTTL: DefaultTokenTTL,
		now:        time.Now,
		log:        obs.Logger(),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Register creates a new user and returns its public fields.
func (s *Service) Register(ctx context.Context, name, email, password string) (PublicUser, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return PublicUser{}, badRequest("name, email and password are required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return PublicUser{}, newError(KindConflict, msgUserExists, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return PublicUser{}, s.internal("register: lookup user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return PublicUser{}, badRequest("password is too long")
		}
		return PublicUser{}, s.internal("register: hash password", err)
	}

	user := &User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return PublicUser{}, newError(KindConflict, msgUserExists, err)
		}
		return PublicUser{}, s.internal("register: create user", err)
	}
	return user.Public(), nil
}

// Login verifies credentials, issues a token and records a session.
// Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, badRequest("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		s.hasher.burn(password)
		return LoginResult{}, newError(KindUnauthorized, msgInvalidCredentials, nil)
	case err != nil:
		return LoginResult{}, s.internal("login: lookup user", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return LoginResult{}, newError(KindUnauthorized, msgInvalidCredentials, nil)
	}

	identity := Identity{UserID: user.ID, Email: user.Email, Name: user.Name}
	token, exp, err := s.tokens.Issue(identity, s.tokenTTL)
	if err != nil {
		return LoginResult{}, s.internal("login: issue token", err)
	}
	session := Session{UserID: user.ID, Email: user.Email, LoginAt: s.now().UTC()}
	if err := s.sessions.Put(ctx, user.ID, session, s.sessionTTL); err != nil {
		return LoginResult{}, s.internal("login: store session", err)
	}

	return LoginResult{Token: token, ExpiresAt: exp, User: user.Public()}, nil
}

// Logout removes the session record of the token's owner. It succeeds
// whether or not a record existed.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.verify(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, claims.UserID); err != nil {
		return s.internal("logout: delete session", err)
	}
	return nil
}

// Authenticate validates the Authorization header value and returns the
// token claims. The session registry is consulted only when enforcement is on.
func (s *Service) Authenticate(ctx context.Context, authorization string) (*Claims, error) {
	token, ok := ParseBearer(authorization)
	if !ok {
		return nil, newError(KindUnauthorized, msgTokenRequired, nil)
	}
	return s.verify(ctx, token)
}

// Profile loads the current user record for claims.
func (s *Service) Profile(ctx context.Context, claims *Claims) (PublicUser, error) {
	if claims == nil {
		return PublicUser{}, newError(KindUnauthorized, msgTokenRequired, nil)
	}
	user, err := s.users.Find(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PublicUser{}, newError(KindNotFound, msgUserNotFound, err)
		}
		return PublicUser{}, s.internal("profile: find user", err)
	}
	return user.Public(), nil
}

func (s *Service) verify(ctx context.Context, token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, newError(KindUnauthorized, msgTokenRequired, nil)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, newError(KindForbidden, msgInvalidToken, err)
	}
	if s.requireSession {
		_, ok, err := s.sessions.Get(ctx, claims.UserID)
		if err != nil {
			return nil, s.internal("authenticate: get session", err)
		}
		if !ok {
			return nil, newError(KindForbidden, msgInvalidToken, nil)
		}
	}
	return claims, nil
}

func (s *Service) internal(op string, err error) *Error {
	s.log.WithError(err).WithField("op", op).Error("auth operation failed")
	return internal(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
