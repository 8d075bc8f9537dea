package httpapi

import (
	"net/http"
	"strings"

	"github.com/boardhub/tokenauth"
	"go.uber.org/zap"
)

// Handlers serves the token endpoints on top of an Engine.
type Handlers struct {
	engine   *tokenauth.Engine
	cfg      tokenauth.Config
	cookies  Cookies
	resolver IdentityResolver
	logger   *zap.Logger
}

// NewHandlers binds the handlers to engine. resolver may be nil, in which
// case the OAuth callback answers 404.
func NewHandlers(engine *tokenauth.Engine, resolver IdentityResolver, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := engine.Config()
	return &Handlers{
		engine:   engine,
		cfg:      cfg,
		cookies:  NewCookies(cfg.Cookie),
		resolver: resolver,
		logger:   logger,
	}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

// Login takes form fields email and password. On success the access token
// goes out in the access header and the JSON body, the refresh token in
// the refresh cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, tokenauth.ErrInvalidCredentials)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	res, err := h.engine.Login(r.Context(), email, password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.deliver(w, res.Tokens)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.Tokens.AccessToken,
		Email:       res.Identity.Subject,
		Role:        res.Identity.Role,
		Username:    res.Identity.Username,
	})
}

// Reissue rotates the refresh cookie and returns a fresh access token.
func (h *Handlers) Reissue(w http.ResponseWriter, r *http.Request) {
	pair, err := h.engine.Reissue(r.Context(), h.cookies.Refresh(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.deliver(w, pair)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": pair.AccessToken})
}

type profileResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Me returns the caller's identity. It must run behind middleware.Guard.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	res, ok := tokenauth.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, tokenauth.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Email:    res.Subject,
		Username: res.Username,
		Role:     res.Role,
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) deliver(w http.ResponseWriter, pair tokenauth.TokenPair) {
	h.cookies.SetAccessHeader(w, pair.AccessToken)
	h.cookies.SetRefresh(w, pair.RefreshToken, h.cfg.JWT.RefreshTTL)
}
