package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
)

type ctxKey int

const userIDKey ctxKey = iota

// BearerAuth returns middleware that resolves the Authorization: Bearer <token>
// header to a user id and stores it in the request context.
// Every configured token is compared with crypto/subtle.ConstantTimeCompare so
// the time taken does not reveal which token, if any, matched.
func BearerAuth(tokens map[string]int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			provided, ok := strings.CutPrefix(auth, "Bearer ")

			var userID int64
			for token, id := range tokens {
				if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
					userID = id
				}
			}

			if !ok || userID == 0 {
				writeMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserIDFromContext returns the authenticated user, or 0 outside BearerAuth.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// userKey is the rate-limit key: one bucket per authenticated user.
func userKey(r *http.Request) (string, error) {
	return "user:" + strconv.FormatInt(UserIDFromContext(r.Context()), 10), nil
}
