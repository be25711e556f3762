package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"securestack.dev/internal/auth"
	"securestack.dev/internal/obs"
	"securestack.dev/internal/stats"
	"securestack.dev/internal/store/pg"
)

const defaultMaxBytes = 1 << 20

// Probe checks one downstream dependency.
type Probe func(ctx context.Context) error

// HealthProbe pings the relational store and the cache.
type HealthProbe struct {
	Database Probe
	Cache    Probe
}

// Directory serves the non-auth users listing.
type Directory interface {
	ListUsers(ctx context.Context) ([]pg.DirectoryUser, error)
	CreateUser(ctx context.Context, name, email string) (pg.DirectoryUser, error)
}

// StatsSource serves cached statistics. Invalidate is called after every
// change to the user count.
type StatsSource interface {
	Get(ctx context.Context) (stats.Stats, bool, error)
	Invalidate(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer dispatches to. Nil members
// leave their routes unregistered.
type Deps struct {
	Auth           *auth.Service
	Users          Directory
	Stats          StatsSource
	Health         HealthProbe
	Version        string
	AllowedOrigins []string
}

// API is the HTTP layer.
type API struct {
	router       *mux.Router
	auth         *auth.Service
	users        Directory
	stats        StatsSource
	health       HealthProbe
	version      string
	origins      []string
	maxBodyBytes int64
}

func New(d Deps) *API {
	a := &API{
		router:       mux.NewRouter(),
		auth:         d.Auth,
		users:        d.Users,
		stats:        d.Stats,
		health:       d.Health,
		version:      d.Version,
		origins:      d.AllowedOrigins,
		maxBodyBytes: defaultMaxBytes,
	}

	a.router.Use(obs.Instrument)
	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	a.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	a.router.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)
	a.routes(a.router)
	// The frontend calls the same endpoints under /api.
	a.routes(a.router.PathPrefix("/api").Subrouter())

	return a
}

func (a *API) routes(r *mux.Router) {
	r.HandleFunc("/health", a.Health).Methods(http.MethodGet)
	r.HandleFunc("/nonce", a.Nonce).Methods(http.MethodGet)
	r.HandleFunc("/security", a.Security).Methods(http.MethodGet)
	r.HandleFunc("/endpoints", a.Endpoints).Methods(http.MethodGet)

	if a.auth != nil {
		r.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)
		r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)

		protected := r.NewRoute().Subrouter()
		protected.Use(a.withAuth)
		protected.HandleFunc("/logout", a.handleLogout).Methods(http.MethodPost)
		protected.HandleFunc("/profile", a.handleProfile).Methods(http.MethodGet)
	}
	if a.users != nil {
		r.HandleFunc("/users", a.handleListUsers).Methods(http.MethodGet)
		r.HandleFunc("/users", a.handleCreateUser).Methods(http.MethodPost)
	}
	if a.stats != nil {
		r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	}
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	check := func(p Probe, component string) error {
		if p == nil {
			return nil
		}
		if err := p(r.Context()); err != nil {
			obs.Logger().WithError(err).WithField("component", component).Error("health check failed")
			return errors.New(component + " unavailable")
		}
		return nil
	}
	if err := check(a.health.Database, "database"); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "unhealthy", "error": err.Error()})
		return
	}
	if err := check(a.health.Cache, "cache"); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"cache":     "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Nonce(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"nonce": NonceFromContext(r.Context())})
}

func (a *API) Security(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"container": map[string]any{
			"user":         os.Getuid(),
			"capabilities": envOr("CAPABILITIES", "none"),
			"readOnlyFs":   envOr("READ_ONLY_FS", "false"),
		},
		"network": map[string]any{
			"policies": envOr("NETWORK_POLICIES", "enabled"),
			"tls":      envOr("TLS_ENABLED", "true"),
		},
		"pod": map[string]any{
			"serviceAccount":  envOr("SERVICE_ACCOUNT", "default"),
			"securityContext": envOr("SECURITY_CONTEXT", "restricted"),
		},
	})
}

type endpoint struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

// endpointDescriptions is keyed by route template without the /api prefix.
var endpointDescriptions = map[string]string{
	"/health":    "Service health and Postgres/Redis connectivity",
	"/nonce":     "Per-request CSP nonce",
	"/security":  "Container and pod security settings",
	"/endpoints": "List of available API endpoints",
	"/register":  "Register a user with name, email and password",
	"/login":     "Exchange credentials for a bearer token",
	"/logout":    "End the session of the token owner",
	"/profile":   "Public profile of the token owner",
	"/users":     "List users (GET) or create a directory user (POST)",
	"/stats":     "User statistics, cached in Redis",
	"/metrics":   "Prometheus metrics",
}

func describeEndpoint(path string) string {
	if d, ok := endpointDescriptions[strings.TrimPrefix(path, "/api")]; ok {
		return d
	}
	return "No description available"
}

func (a *API) Endpoints(w http.ResponseWriter, r *http.Request) {
	byPath := make(map[string][]string)
	_ = a.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		byPath[tpl] = append(byPath[tpl], methods...)
		return nil
	})
	list := make([]endpoint, 0, len(byPath))
	for path, methods := range byPath {
		sort.Strings(methods)
		list = append(list, endpoint{Path: path, Methods: methods, Description: describeEndpoint(path)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })

	writeJSON(w, http.StatusOK, map[string]any{
		"service":        obs.ServiceName,
		"version":        a.version,
		"totalEndpoints": len(list),
		"endpoints":      list,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

var errBodyTooLarge = errors.New("request body too large")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, defaultMaxBytes)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// writeDecodeError reports a body that decodeJSON rejected.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
