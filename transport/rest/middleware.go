package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
)

type contextKey string

const userIDKey contextKey = "userID"

// authMiddleware authenticates the bearer token and injects the user id.
// Identity always comes from the token, never from the request body.
func (that *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			that.writeError(w, apperror.ErrInvalidCredentials)
			return
		}

		userID, err := that.authService.ParseToken(token)
		if err != nil {
			that.writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
