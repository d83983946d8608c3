package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenHeader carries the token on PUT requests.
const TokenHeader = "X-Token"

type tokenSource func(r *http.Request) string

func tokenFromPath(r *http.Request) string   { return chi.URLParam(r, "token") }
func tokenFromHeader(r *http.Request) string { return r.Header.Get(TokenHeader) }
func tokenFromQuery(r *http.Request) string  { return r.URL.Query().Get("token") }

// TokenAuth rejects requests without a token, or with one outside allowed
// when allowed is non-empty.
func TokenAuth(allowed []string, source tokenSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := source(r)
			if token == "" {
				jsonError(w, "missing token", http.StatusUnauthorized)
				return
			}
			if !tokenAllowed(allowed, token) {
				jsonError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withToken(r.Context(), token)))
		})
	}
}

func tokenAllowed(allowed []string, token string) bool {
	if len(allowed) == 0 {
		return true
	}
	ok := false
	for _, a := range allowed {
		if subtle.ConstantTimeCompare([]byte(token), []byte(a)) == 1 {
			ok = true
		}
	}
	return ok
}

// BodyLimit caps request bodies at n bytes.
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && n > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs incoming requests.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r)
			// The route pattern keeps tokens out of the log.
			path := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}
			log.Info("request",
				"method", r.Method,
				"path", path,
				"status", sw.status,
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
