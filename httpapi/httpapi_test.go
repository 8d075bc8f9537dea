package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/boardhub/tokenauth"
	"github.com/boardhub/tokenauth/session"
)

type staticUsers map[string]tokenauth.UserRecord

func (u staticUsers) GetUserByIdentifier(_ context.Context, id string) (tokenauth.UserRecord, error) {
	rec, ok := u[id]
	if !ok {
		return tokenauth.UserRecord{}, tokenauth.ErrUserNotFound
	}
	return rec, nil
}

func (u staticUsers) UpdatePasswordHash(context.Context, string, string) error { return nil }

type failingStore struct{ *session.MemoryStore }

func (failingStore) Get(context.Context, string) (string, error) {
	return "", session.ErrUnavailable
}

func newTestServer(t *testing.T, store session.Store, resolver IdentityResolver) (*tokenauth.Engine, http.Handler) {
	t.Helper()
	cfg := tokenauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.OAuth.RedirectURL = "http://localhost:5173/oauth"

	users := staticUsers{}
	engine, err := tokenauth.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithUserProvider(users).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	hash, err := engine.HashPassword("correct-password-123")
	require.NoError(t, err)
	users["alice@example.com"] = tokenauth.UserRecord{
		Subject: "alice@example.com", Username: "alice", Role: "ROLE_USER", PasswordHash: hash,
	}

	return engine, NewRouter(engine, Options{Resolver: resolver})
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("no refresh_token cookie in response")
	return nil
}

func errorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func loginRequest(email, password string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginReissueLogoutOverHTTP(t *testing.T) {
	_, h := newTestServer(t, session.NewMemoryStore(), nil)

	rec := do(h, loginRequest("alice@example.com", "correct-password-123"))
	require.Equal(t, http.StatusOK, rec.Code)

	var login loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.Equal(t, "alice@example.com", login.Email)
	require.Equal(t, "alice", login.Username)
	require.Equal(t, "ROLE_USER", login.Role)
	require.Equal(t, login.AccessToken, rec.Header().Get("access_token"))

	cookie := refreshCookie(t, rec)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, 24*60*60, cookie.MaxAge)

	// Protected route.
	me := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusUnauthorized, do(h, me).Code)
	me.Header.Set("access_token", login.AccessToken)
	rec = do(h, me)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "alice@example.com")

	// Reissue rotates the cookie.
	req := httptest.NewRequest(http.MethodPost, "/reissue", nil)
	req.AddCookie(cookie)
	rec = do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := refreshCookie(t, rec)
	require.NotEqual(t, cookie.Value, rotated.Value)
	require.NotEmpty(t, rec.Header().Get("access_token"))

	// The old cookie is dead.
	req = httptest.NewRequest(http.MethodPost, "/reissue", nil)
	req.AddCookie(cookie)
	rec = do(h, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "session_mismatch", errorReason(t, rec))

	// Logout twice: revoke, then no-op.
	for _, want := range []string{"logged_out", "already_logged_out"} {
		req = httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.AddCookie(rotated)
		rec = do(h, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), want)
		cleared := refreshCookie(t, rec)
		require.Equal(t, -1, cleared.MaxAge)
	}
}

func TestReissueFailuresAre400(t *testing.T) {
	engine, h := newTestServer(t, session.NewMemoryStore(), nil)
	pair, err := engine.Issue(context.Background(), tokenauth.Identity{Subject: "bob@example.com"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		cookie string
		reason string
	}{
		{"missing", "", "token_missing"},
		{"malformed", "abc.def.ghi", "token_malformed"},
		{"access token", pair.AccessToken, "token_category_mismatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/reissue", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "refresh_token", Value: tc.cookie})
			}
			rec := do(h, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.reason, errorReason(t, rec))
		})
	}
}

func TestStoreOutageIs503(t *testing.T) {
	engine, h := newTestServer(t, failingStore{session.NewMemoryStore()}, nil)
	pair, err := engine.Issue(context.Background(), tokenauth.Identity{Subject: "carol@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/reissue", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.RefreshToken})
	rec := do(h, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "store_unavailable", errorReason(t, rec))
}

func TestLoginBadCredentials(t *testing.T) {
	_, h := newTestServer(t, session.NewMemoryStore(), nil)

	rec := do(h, loginRequest("alice@example.com", "wrong-password-000"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", errorReason(t, rec))
	for _, c := range rec.Result().Cookies() {
		require.NotEqual(t, "refresh_token", c.Name)
	}
}

func TestLogoutFilterMatching(t *testing.T) {
	_, h := newTestServer(t, session.NewMemoryStore(), nil)

	rec := do(h, httptest.NewRequest(http.MethodDelete, "/logout", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "token_missing", errorReason(t, rec))

	// GET is not a logout method, so the request falls through to routing.
	rec = do(h, httptest.NewRequest(http.MethodGet, "/logout", nil))
	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestOAuthCallbackRedirects(t *testing.T) {
	resolver := IdentityResolverFunc(func(r *http.Request) (tokenauth.Identity, string, error) {
		if r.URL.Query().Get("code") == "" {
			return tokenauth.Identity{}, "google", errors.New("no code")
		}
		return tokenauth.Identity{Subject: "dana@example.com", Username: "Dana", Role: "ROLE_USER"}, "google", nil
	})
	_, h := newTestServer(t, session.NewMemoryStore(), resolver)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=xyz", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "localhost:5173", loc.Host)
	require.Equal(t, "Dana", loc.Query().Get("name"))
	require.Equal(t, "dana@example.com", loc.Query().Get("email"))

	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = true
	}
	require.True(t, names["access_token"])
	require.True(t, names["refresh_token"])

	rec = do(h, httptest.NewRequest(http.MethodGet, "/oauth2/callback", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForwardedIdentity(t *testing.T) {
	resolver := ForwardedIdentity("ROLE_USER")

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback", nil)
	req.Header.Set(ForwardedEmailHeader, "erin@example.com")
	req.Header.Set(ForwardedProviderHeader, "github")

	id, provider, err := resolver.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, "github", provider)
	require.Equal(t, "erin@example.com", id.Subject)
	require.Equal(t, "erin@example.com", id.Username)
	require.Equal(t, "ROLE_USER", id.Role)

	_, _, err = resolver.Resolve(httptest.NewRequest(http.MethodGet, "/oauth2/callback", nil))
	require.ErrorIs(t, err, tokenauth.ErrUnauthorized)
}

func TestLoginIPThrottleIgnoresForwardedHeader(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := tokenauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.EnableIPThrottle = true
	cfg.Security.MaxLoginAttempts = 3

	engine, err := tokenauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(staticUsers{}).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	h := NewRouter(engine, Options{})

	statuses := map[int]int{}
	for i := 0; i < 10; i++ {
		// A fresh identifier each time leaves only the IP bucket to trip.
		req := loginRequest(fmt.Sprintf("user%d@example.com", i), "wrong-password-123")
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		statuses[do(h, req).Code]++
	}
	require.Equal(t, 3, statuses[http.StatusUnauthorized], "statuses %v", statuses)
	require.Equal(t, 7, statuses[http.StatusTooManyRequests], "statuses %v", statuses)

	var ipKeys []string
	for _, k := range mr.Keys() {
		if strings.Contains(k, ":ip:") {
			ipKeys = append(ipKeys, k)
		}
	}
	require.Len(t, ipKeys, 1)
	require.NotContains(t, ipKeys[0], "203.0.113.9")
}
