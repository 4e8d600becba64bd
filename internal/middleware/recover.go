package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Recoverer превращает панику в 500. Подробности отдаются клиенту только в режиме разработки.
func Recoverer(showDetails bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				sugar.Errorw("panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
				msg := "Internal server error"
				if showDetails {
					msg = fmt.Sprintf("%s: %v", msg, rec)
				}
				WriteError(w, http.StatusInternalServerError, msg)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders выставляет стандартные защитные заголовки.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
