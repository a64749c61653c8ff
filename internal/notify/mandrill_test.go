package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMandrill_SendTemplate(t *testing.T) {
	var got sendTemplateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/send-template.json", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"email":"a@example.com","status":"sent","_id":"1"},
			{"email":"b@other.com","status":"rejected","reject_reason":"recipient-domain-mismatch","_id":"2"}
		]`))
	}))
	defer srv.Close()

	m := NewMandrill(MandrillConfig{APIKey: " key-123 \n", BaseURL: srv.URL + "/"}, srv.Client())

	results, err := m.SendTemplate(context.Background(), TemplateMessage{
		TemplateName: "step-done",
		Subject:      "Step complete",
		FromEmail:    "noreply@example.com",
		To:           []Recipient{{Email: "a@example.com"}, {Email: "b@other.com"}},
		MergeVars:    []MergeVar{{Name: "STEP", Content: "Billing"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].Accepted())
	require.False(t, results[1].Accepted())
	require.Equal(t, "recipient-domain-mismatch", results[1].RejectReason)

	require.Equal(t, "key-123", got.Key)
	require.Equal(t, "step-done", got.TemplateName)
	require.Equal(t, "Step complete", got.Message.Subject)
	require.Len(t, got.Message.GlobalMergeVars, 1)
	require.NotNil(t, got.TemplateContent)
}

func TestMandrill_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "invalid key", status: 500, body: `{"status":"error","code":-1,"name":"Invalid_Key","message":"Invalid API key"}`, want: ErrInvalidKey},
		{name: "unknown template", status: 500, body: `{"status":"error","code":5,"name":"Unknown_Template","message":"No such template \"x\""}`, want: ErrInvalidTemplate},
		{name: "other api error", status: 500, body: `{"status":"error","code":-2,"name":"ValidationError","message":"bad"}`, want: ErrUpstream},
		{name: "not json", status: 502, body: `<html>bad gateway</html>`, want: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m := NewMandrill(MandrillConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
			_, err := m.SendTemplate(context.Background(), TemplateMessage{TemplateName: "x"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMandrill_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	m := NewMandrill(MandrillConfig{APIKey: "k", BaseURL: srv.URL, SendTimeout: 50 * time.Millisecond}, srv.Client())

	start := time.Now()
	_, err := m.SendTemplate(context.Background(), TemplateMessage{TemplateName: "x"})
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), time.Second)
}

func TestMandrill_ListTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/templates/list.json", r.URL.Path)
		_, _ = w.Write([]byte(`[{"slug":"welcome","name":"Welcome","labels":["onboarding"]}]`))
	}))
	defer srv.Close()

	m := NewMandrill(MandrillConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	templates, err := m.ListTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Equal(t, "welcome", templates[0].Slug)
}
