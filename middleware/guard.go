package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/boardhub/tokenauth"
)

// Guard requires a valid access token. The validated *tokenauth.AuthResult
// is stored in the request context; read it with
// tokenauth.AuthResultFromContext.
func Guard(engine *tokenauth.Engine) func(http.Handler) http.Handler {
	header := accessHeader(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := AccessToken(r, header)
			if !ok {
				writeError(w, http.StatusUnauthorized, tokenauth.Reason(tokenauth.ErrTokenMissing))
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, tokenauth.Reason(err))
				return
			}

			ctx := tokenauth.WithAuthResult(r.Context(), res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches the identity when the request carries a valid access
// token and otherwise serves the request anonymously.
func Optional(engine *tokenauth.Engine) func(http.Handler) http.Handler {
	header := accessHeader(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if token, ok := AccessToken(r, header); ok {
					if res, err := engine.ValidateAccess(r.Context(), token); err == nil {
						r = r.WithContext(tokenauth.WithAuthResult(r.Context(), res))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessHeader(engine *tokenauth.Engine) string {
	if engine == nil {
		return ""
	}
	return engine.Config().Cookie.AccessHeader
}

// RequireRole must run after Guard.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := tokenauth.AuthResultFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, ok := allowed[res.Role]; !ok {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessToken returns the access token from the named header, or from an
// "Authorization: Bearer" header when the named one is empty.
func AccessToken(r *http.Request, header string) (string, bool) {
	if header != "" {
		if token := strings.TrimSpace(r.Header.Get(header)); token != "" {
			return token, true
		}
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
