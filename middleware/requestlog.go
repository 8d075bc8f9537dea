package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/boardhub/tokenauth"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// RequestIDHeader is read from and echoed on every response.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds client-supplied request IDs. A KSUID is 27 chars.
const maxRequestIDLen = 64

// statusWriter records the status code and body size for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.count += n
	return n, err
}

// RequestLog assigns a request ID (a KSUID unless the client sent a usable
// one), puts the ID, client IP and user agent into the context for audit
// events, and logs one line per request.
//
// The client IP is the peer address. X-Forwarded-For is honored only with
// trustProxy set, i.e. when a proxy that overwrites the header sits in front.
func RequestLog(logger *zap.Logger, trustProxy bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !validRequestID(id) {
				id = ksuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := tokenauth.WithRequestID(r.Context(), id)
			ctx = tokenauth.WithClientIP(ctx, clientIP(r, trustProxy))
			ctx = tokenauth.WithUserAgent(ctx, r.UserAgent())
			r = r.WithContext(ctx)

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)

			logger.Info("http",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("dur", time.Since(start)),
				zap.Int("bytes", sw.count),
			)
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
