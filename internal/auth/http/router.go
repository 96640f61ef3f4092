package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yellowgoat/authsvc/internal/auth/metrics"
	"github.com/yellowgoat/authsvc/internal/auth/service"
	"github.com/yellowgoat/authsvc/internal/auth/store"
	"github.com/yellowgoat/authsvc/pkg/httpx"
	"github.com/yellowgoat/authsvc/pkg/slogx"

	"github.com/prometheus/client_golang/prometheus"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	metrics  metrics.Recorder
	gatherer prometheus.Gatherer

	AuthService      *service.AuthService
	MFAService       *service.MFAService
	UserService      *service.UserService
	BootstrapService *service.BootstrapService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	rec metrics.Recorder,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      rec,
		gatherer:     gatherer,
		logger:       logger,
	}

	// Default middleware chain, applied to every route.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerUsers()
	r.registerBootstrap()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn builds the bearer-token middleware, recording rejections.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.AuthService, func(err error) {
		r.metrics.RecordTokenRejected(err.Error())
	})
}

func (r *Router) registerAuth() {
	h := &LoginHandler{AuthService: r.AuthService, Metrics: r.metrics}

	// POST /auth/login - strict rate limit keyed by IP + username to
	// slow per-account brute force without letting one attacker lock a
	// whole NAT range out.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndBodyField(httpx.StrictLimit, "username"),
		),
	)

	// POST /auth/2fa/verify - strict rate limit by IP (six digit codes
	// brute force quickly without one).
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	securedEnroll := httpx.Chain(http.HandlerFunc(h.HandleEnroll),
		r.authn(),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	securedEnable := httpx.Chain(http.HandlerFunc(h.HandleEnable),
		r.authn(),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("POST /v1/auth/2fa/enroll", securedEnroll)
	r.Mux.Handle("POST /v1/auth/2fa/enable", securedEnable)
}

func (r *Router) registerUsers() {
	info := &UserInfoHandler{}
	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(info,
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	h := &UsersHandler{UserService: r.UserService}

	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		r.authn(),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	securedGet := httpx.Chain(http.HandlerFunc(h.HandleGet),
		r.authn(),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	// Creating users is admin-only.
	securedCreate := httpx.Chain(http.HandlerFunc(h.HandleCreate),
		r.authn(),
		httpx.RequireRole("admin"),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/users", securedList)
	r.Mux.Handle("GET /v1/users/{id}", securedGet)
	r.Mux.Handle("POST /v1/users", securedCreate)
}

func (r *Router) registerBootstrap() {
	h := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /metrics", metrics.Handler(r.gatherer))
}
