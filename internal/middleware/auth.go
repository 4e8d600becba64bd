package middleware

import (
	"context"
	"net/http"
	"time"

	"ChipTrack/internal/auth"
)

// Имена cookie и заголовка сессии.
const (
	AuthCookieName = "chip_auth"
	CSRFCookieName = "chip_csrf"
	CSRFHeaderName = "x-csrf-token"
)

type ctxKey string

const principalKey ctxKey = "principal"

// SetSessionCookies выставляет cookie сессии (HttpOnly) и CSRF (доступна скрипту).
func SetSessionCookies(w http.ResponseWriter, token, csrf string, expires time.Time, secure bool) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = int(auth.SessionTTL.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    csrf,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookies удаляет обе cookie. Сам токен при этом не отзывается:
// до истечения срока он остаётся действительным.
func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AuthCookieName, CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name == AuthCookieName,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// WithAuth восстанавливает Principal из cookie сессии.
// Невалидный или просроченный токен оставляет запрос анонимным и стирает cookie.
func WithAuth(tokens *auth.TokenManager, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(AuthCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := tokens.Verify(c.Value)
			if err != nil {
				sugar.Debugw("WithAuth: session token rejected", "error", err)
				ClearSessionCookies(w, secure)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WithPrincipal кладёт Principal в контекст.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipalFromContext возвращает Principal текущего запроса.
func GetPrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok && p != nil
}

// RequireAuth отвечает 401 анонимным запросам.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetPrincipalFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission: нет сессии - 401, у роли нет права - 403.
func RequirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !auth.HasPermission(p.Role, perm) {
				WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
