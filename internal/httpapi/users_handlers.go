package httpapi

import (
	"errors"
	"net/http"

	"securestack.dev/internal/obs"
	"securestack.dev/internal/store/pg"
)

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.ListUsers(r.Context())
	if err != nil {
		obs.Logger().WithError(err).Error("users fetch failed")
		writeError(w, r, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	user, err := a.users.CreateUser(r.Context(), req.Name, req.Email)
	switch {
	case errors.Is(err, pg.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, pg.ErrDuplicate):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	case err != nil:
		obs.Logger().WithError(err).Error("user creation failed")
		writeError(w, r, http.StatusInternalServerError, "Database error")
		return
	}
	a.invalidateStats(r)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	st, hit, err := a.stats.Get(r.Context())
	if err != nil {
		obs.Logger().WithError(err).Error("stats fetch failed")
		writeError(w, r, http.StatusInternalServerError, "Service error")
		return
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, st)
}

// invalidateStats drops the cached user count. Failures are logged; the
// entry still expires after its TTL.
func (a *API) invalidateStats(r *http.Request) {
	if a.stats == nil {
		return
	}
	if err := a.stats.Invalidate(r.Context()); err != nil {
		obs.Logger().WithError(err).Warn("stats invalidation failed")
	}
}
