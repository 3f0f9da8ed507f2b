package chi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/logger"
	sessionuc "github.com/kailas-cloud/pawmatch/internal/usecase/session"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type sessionCtxKey struct{}

// SessionMiddleware resolves the session cookie and stores the session in the context.
// Requests without a live session get 401.
func SessionMiddleware(manager *sessionuc.Manager, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "please login first")
				return
			}

			sess, err := manager.Get(c.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "please login first")
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
			ctx = logger.With(ctx, zap.String("session_id", sess.ID()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(ctx context.Context) *sessionuc.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*sessionuc.Session)
	return s
}

func (c CookieConfig) issue(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
