package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMandrillURL is the Mandrill API base URL.
const DefaultMandrillURL = "https://mandrillapp.com/api/1.0"

// MandrillConfig configures the Mandrill client.
type MandrillConfig struct {
	APIKey      string
	BaseURL     string
	SendTimeout time.Duration
	ListTimeout time.Duration
}

// Mandrill sends template email through the Mandrill transactional API.
type Mandrill struct {
	cfg    MandrillConfig
	client *http.Client
}

// NewMandrill creates a Mandrill client. Zero timeouts default to 15s for
// sends and 10s for template listing.
func NewMandrill(cfg MandrillConfig, client *http.Client) *Mandrill {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMandrillURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.ListTimeout == 0 {
		cfg.ListTimeout = 10 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Mandrill{cfg: cfg, client: client}
}

type sendTemplateRequest struct {
	Key             string          `json:"key"`
	TemplateName    string          `json:"template_name"`
	TemplateContent []MergeVar      `json:"template_content"`
	Message         mandrillMessage `json:"message"`
}

type mandrillMessage struct {
	Subject         string      `json:"subject,omitempty"`
	FromEmail       string      `json:"from_email,omitempty"`
	FromName        string      `json:"from_name,omitempty"`
	To              []Recipient `json:"to"`
	TrackOpens      bool        `json:"track_opens"`
	TrackClicks     bool        `json:"track_clicks"`
	AutoText        bool        `json:"auto_text"`
	InlineCSS       bool        `json:"inline_css"`
	GlobalMergeVars []MergeVar  `json:"global_merge_vars,omitempty"`
}

type mandrillError struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// SendTemplate sends msg using a stored template.
func (m *Mandrill) SendTemplate(ctx context.Context, msg TemplateMessage) ([]DeliveryResult, error) {
	req := sendTemplateRequest{
		Key:             m.cfg.APIKey,
		TemplateName:    msg.TemplateName,
		TemplateContent: []MergeVar{},
		Message: mandrillMessage{
			Subject:         msg.Subject,
			FromEmail:       msg.FromEmail,
			FromName:        msg.FromName,
			To:              msg.To,
			TrackOpens:      true,
			TrackClicks:     true,
			AutoText:        true,
			InlineCSS:       true,
			GlobalMergeVars: msg.MergeVars,
		},
	}

	var results []DeliveryResult
	if err := m.call(ctx, m.cfg.SendTimeout, "/messages/send-template.json", req, &results); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("template", msg.TemplateName).
		Int("recipients", len(msg.To)).
		Int("results", len(results)).
		Msg("template email submitted")

	return results, nil
}

// ListTemplates returns every template in the account.
func (m *Mandrill) ListTemplates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if err := m.call(ctx, m.cfg.ListTimeout, "/templates/list.json", map[string]string{"key": m.cfg.APIKey}, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (m *Mandrill) call(ctx context.Context, timeout time.Duration, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: invalid response: %v", ErrUpstream, err)
	}
	return nil
}

func classifyError(status int, data []byte) error {
	var apiErr mandrillError
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Message == "" {
		return fmt.Errorf("%w: status %d", ErrUpstream, status)
	}

	switch {
	case apiErr.Name == "Invalid_Key" || strings.Contains(apiErr.Message, "Invalid API key"):
		return fmt.Errorf("%w: %s", ErrInvalidKey, apiErr.Message)
	case apiErr.Name == "Unknown_Template" || strings.Contains(apiErr.Message, "Invalid template") ||
		strings.Contains(apiErr.Message, "No such template"):
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, apiErr.Message)
	}
	return fmt.Errorf("%w: %s", ErrUpstream, apiErr.Message)
}
