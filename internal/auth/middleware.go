package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// UserIDFromContext returns the id stored by Middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware requires a valid "Authorization: Bearer <token>" header and
// stores the token's user id in the request context. Failures are handed to
// onError with ErrInvalidToken.
func (s *Service) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				onError(w, r, ErrInvalidToken)
				return
			}

			claims, err := s.Verify(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, claims.User.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
