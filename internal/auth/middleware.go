package auth

import (
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorHandler writes an error response for a failed request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware returns an HTTP middleware that resolves the bearer credential and
// adds the user to the request context. Resolution failures are passed to onError.
func Middleware(resolver *Resolver, onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = zerolog.Ctx(ctx).With().Str("user_id", user.UserID).Logger().WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
