package httpapi

import (
	"net/http"
	"time"

	"github.com/boardhub/tokenauth"
)

// Cookies reads and writes the token cookies with one set of names and
// attributes.
type Cookies struct {
	cfg tokenauth.CookieConfig
}

func NewCookies(cfg tokenauth.CookieConfig) Cookies {
	return Cookies{cfg: cfg}
}

// Refresh returns the refresh token cookie value, or "" when absent.
func (c Cookies) Refresh(r *http.Request) string {
	cookie, err := r.Cookie(c.cfg.RefreshName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetRefresh writes the refresh cookie with Max-Age equal to ttl, which
// should be the refresh token lifetime.
func (c Cookies) SetRefresh(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(c.cfg.RefreshName, token, maxAge(ttl)))
}

// ClearRefresh expires the refresh cookie on the client.
func (c Cookies) ClearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(c.cfg.RefreshName, "", -1))
}

// SetAccess writes the access token as a cookie. Only used for redirect
// delivery, where a response header would not survive the redirect.
func (c Cookies) SetAccess(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(c.cfg.AccessName, token, maxAge(ttl)))
}

// SetAccessHeader exposes the access token on the configured header.
func (c Cookies) SetAccessHeader(w http.ResponseWriter, token string) {
	w.Header().Set(c.cfg.AccessHeader, token)
}

func (c Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	}
}

// maxAge converts ttl to cookie seconds; net/http sends -1 as Max-Age=0.
func maxAge(ttl time.Duration) int {
	secs := int(ttl / time.Second)
	if secs <= 0 {
		return -1
	}
	return secs
}
