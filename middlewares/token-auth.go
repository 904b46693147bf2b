package middlewares

import (
	"context"
	"errors"
	"net/http"

	"posts-api/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a copy of ctx carrying the verified user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the id stored by TokenAuthMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// TokenAuthMiddleware resolves the Authorization header through verifier
// and rejects the request before it reaches next when that fails. A missing
// header answers 403, a token the identity service refuses answers 401.
func TokenAuthMiddleware(verifier utils.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	var upstream *utils.UpstreamError
	switch {
	case errors.Is(err, utils.ErrMissingToken):
		RespondMessage(w, utils.ErrMissingToken.Error(), http.StatusForbidden)
	case errors.Is(err, utils.ErrInvalidToken):
		RespondMessage(w, utils.ErrInvalidToken.Error(), http.StatusUnauthorized)
	case errors.As(err, &upstream):
		HttpError(w, upstream.Body, upstream.Status, err)
	default:
		HttpError(w, "Internal server error", http.StatusInternalServerError, err)
	}
}
