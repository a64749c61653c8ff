package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	r, _ := newTestResolver(t)

	var gotErr error
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	}

	handler := Middleware(r, onError)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user := UserFromContext(req.Context())
		require.NotNil(t, user)
		_, _ = w.Write([]byte(user.UserID))
	}))

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer alice-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "uid-alice", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.ErrorIs(t, gotErr, ErrUnauthenticated)
	})

	t.Run("no user in plain context", func(t *testing.T) {
		require.Nil(t, UserFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
	})
}
