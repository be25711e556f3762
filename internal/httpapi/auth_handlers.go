package httpapi

import (
	"net/http"
	"time"

	"securestack.dev/internal/audit"
	"securestack.dev/internal/auth"
	"securestack.dev/internal/obs"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string          `json:"message"`
	User    auth.PublicUser `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string          `json:"message"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      auth.PublicUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	user, err := a.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, "register", err)
		return
	}
	obs.ObserveAuth("register", "ok")
	a.invalidateStats(r)
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"registered_user_id": user.ID,
		"email":              user.Email,
	})

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    user,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if auth.KindOf(err) == auth.KindUnauthorized {
			_ = audit.LogEvent(r.Context(), "auth.login_failed", map[string]any{"email": req.Email})
		}
		writeAuthError(w, r, "login", err)
		return
	}
	obs.ObserveAuth("login", "ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"logged_in_user_id": res.User.ID,
		"expires_at":        res.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromContext(r.Context())
	if err := a.auth.Logout(r.Context(), token); err != nil {
		writeAuthError(w, r, "logout", err)
		return
	}
	obs.ObserveAuth("logout", "ok")
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	user, err := a.auth.Profile(r.Context(), claims)
	if err != nil {
		writeAuthError(w, r, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// writeAuthError maps the auth error taxonomy onto HTTP statuses. Only the
// public message reaches the client.
func writeAuthError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := auth.KindOf(err)
	obs.ObserveAuth(op, kind.String())
	writeError(w, r, statusForKind(kind), auth.PublicMessage(err))
}

func statusForKind(k auth.Kind) int {
	switch k {
	case auth.KindBadRequest:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
