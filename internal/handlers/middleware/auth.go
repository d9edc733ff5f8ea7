package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/handlers/render"
	"github.com/nkiryanov/bazaar/internal/handlers/userctx"
)

type authenticator interface {
	Auth(r *http.Request) (uuid.UUID, error)
}

func AuthMiddleware(a authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := a.Auth(r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
