package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bazaar/internal/handlers/userctx"
)

// Allow to use a function as authenticator
type authFunc func(r *http.Request) (uuid.UUID, error)

func (f authFunc) Auth(r *http.Request) (uuid.UUID, error) {
	return f(r)
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	// Simple handler that writes caller id from context to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user or write error to response
		id, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(id.String()))
		require.NoError(t, err, "should write user id to response")
	})

	t.Run("auth ok", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(r *http.Request) (uuid.UUID, error) {
			return userID, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", string(body))
		require.Equal(t, userID.String(), string(body), "should return user id in response")
	})

	t.Run("auth fail", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(r *http.Request) (uuid.UUID, error) {
			return uuid.Nil, errors.New("no token")
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.JSONEq(t, `{"error": "service_error", "message": "Unauthorized"}`, string(body))
	})
}
