package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/boardhub/tokenauth"
)

// IdentityResolver turns a provider callback request into a verified
// identity. The OAuth handshake itself lives behind this interface.
type IdentityResolver interface {
	Resolve(r *http.Request) (id tokenauth.Identity, provider string, err error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(r *http.Request) (tokenauth.Identity, string, error)

func (f IdentityResolverFunc) Resolve(r *http.Request) (tokenauth.Identity, string, error) {
	return f(r)
}

// OAuthCallback issues a session for the resolved identity and redirects to
// the configured URL. Both tokens travel as cookies because headers do not
// survive the redirect; name and email are appended as query parameters.
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		http.NotFound(w, r)
		return
	}

	id, provider, err := h.resolver.Resolve(r)
	if err != nil {
		h.logger.Info("oauth identity rejected", zap.String("provider", provider), zap.Error(err))
		writeError(w, tokenauth.ErrUnauthorized)
		return
	}

	pair, err := h.engine.CompleteOAuth(r.Context(), id, provider)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.SetAccess(w, pair.AccessToken, h.cfg.JWT.AccessTTL)
	h.cookies.SetRefresh(w, pair.RefreshToken, h.cfg.JWT.RefreshTTL)

	target, err := url.Parse(h.cfg.OAuth.RedirectURL)
	if err != nil {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	q.Set("name", id.Username)
	q.Set("email", id.Subject)
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

// Headers set by an authenticating reverse proxy in front of the callback
// route.
const (
	ForwardedEmailHeader    = "X-Forwarded-Email"
	ForwardedUserHeader     = "X-Forwarded-User"
	ForwardedProviderHeader = "X-Forwarded-Provider"
)

// ForwardedIdentity resolves the identity from proxy headers. Only mount it
// behind a proxy that strips these headers from client requests.
func ForwardedIdentity(role string) IdentityResolver {
	return IdentityResolverFunc(func(r *http.Request) (tokenauth.Identity, string, error) {
		provider := r.Header.Get(ForwardedProviderHeader)
		email := strings.TrimSpace(r.Header.Get(ForwardedEmailHeader))
		if email == "" {
			return tokenauth.Identity{}, provider, tokenauth.ErrUnauthorized
		}
		name := strings.TrimSpace(r.Header.Get(ForwardedUserHeader))
		if name == "" {
			name = email
		}
		return tokenauth.Identity{Subject: email, Username: name, Role: role}, provider, nil
	})
}
