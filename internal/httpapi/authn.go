package httpapi

import (
	"net/http"

	"securestack.dev/internal/auth"
)

const (
	authHeader          = "Authorization"
	wwwAuthenticate     = "WWW-Authenticate"
	bearerChallenge     = `Bearer realm="securestack"`
	bearerInvalidDetail = `Bearer realm="securestack", error="invalid_token"`
)

// withAuth guards protected routes: the request proceeds only with a
// verified bearer token, whose claims and raw value land in the context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(authHeader)
		claims, err := a.auth.Authenticate(r.Context(), header)
		if err != nil {
			switch auth.KindOf(err) {
			case auth.KindUnauthorized:
				w.Header().Set(wwwAuthenticate, bearerChallenge)
			case auth.KindForbidden:
				w.Header().Set(wwwAuthenticate, bearerInvalidDetail)
			}
			writeAuthError(w, r, "authenticate", err)
			return
		}

		token, _ := auth.ParseBearer(header)
		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
