package httpapi

import (
	"net/http"

	"github.com/boardhub/tokenauth"
)

// LogoutFilter intercepts requests whose method and path match the logout
// configuration and revokes the session named by the refresh cookie. Other
// requests pass through untouched. It is the only logout implementation;
// mount it once, in front of the router.
//
// The refresh cookie is expired on every intercepted request. Revoking an
// absent session answers 200 with status "already_logged_out".
func LogoutFilter(engine *tokenauth.Engine) func(http.Handler) http.Handler {
	cfg := engine.Config()
	cookies := NewCookies(cfg.Cookie)
	methods := make(map[string]struct{}, len(cfg.Logout.Methods))
	for _, m := range cfg.Logout.Methods {
		methods[m] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != cfg.Logout.Path {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := methods[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			token := cookies.Refresh(r)
			r = r.WithContext(tokenauth.ClearAuthResult(r.Context()))
			cookies.ClearRefresh(w)

			res, err := engine.Logout(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}

			status := "logged_out"
			if !res.Revoked {
				status = "already_logged_out"
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": status})
		})
	}
}
