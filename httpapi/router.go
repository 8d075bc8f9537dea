package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boardhub/tokenauth"
	"github.com/boardhub/tokenauth/middleware"
)

// Options configures NewRouter. Metrics, when set, is served on /metrics.
// TrustProxy takes the client IP from X-Forwarded-For; set it only behind a
// proxy that overwrites that header.
type Options struct {
	Logger     *zap.Logger
	Resolver   IdentityResolver
	Metrics    http.Handler
	TrustProxy bool
}

// NewRouter wires the token endpoints, the logout filter and the request
// logger into one handler.
func NewRouter(engine *tokenauth.Engine, opts Options) http.Handler {
	h := NewHandlers(engine, opts.Resolver, opts.Logger)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestLog(opts.Logger, opts.TrustProxy),
		LogoutFilter(engine),
	)

	r.Post("/login", h.Login)
	r.Get("/oauth2/callback", h.OAuthCallback)
	r.Post("/reissue", h.Reissue)
	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(engine))
		r.Get("/api/users/me", h.Me)
	})

	return r
}
