package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	httpmiddleware "github.com/wolfeidau/onboard/internal/http"
)

func TestHTTPRequests(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	var inner bool
	h := httpmiddleware.ClientIPMiddleware()(HTTPRequests(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		inner = true
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/companies/c1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, inner)
	require.Equal(t, http.StatusTeapot, rec.Code)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, last map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &last))

	require.Equal(t, "inside", first["message"])
	require.Equal(t, "/companies/c1", first["path"])
	require.Equal(t, "203.0.113.9", last["client_ip"])
	require.Equal(t, float64(http.StatusTeapot), last["status"])
	require.Equal(t, float64(len("short and stout")), last["bytes"])
	require.Equal(t, "info", last["level"])
}

func TestHTTPRequestsServerError(t *testing.T) {
	var buf bytes.Buffer
	h := HTTPRequests(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "error", entry["level"])
}
