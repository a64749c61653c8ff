package invitation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sentinel errors for invitation operations
var (
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrInvalidExpiry     = errors.New("invalid expiry date")
	ErrInvalidInvitation = errors.New("invalid invitation")
)

// expiryLayouts are accepted for NewInvitation.ExpiryDate. Values without a
// zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// NewInvitation is the input to Create.
type NewInvitation struct {
	Code        string
	CompanyID   string
	CompanyName string
	ExpiryDate  string
	CreatedBy   string
}

// Ledger issues and redeems single-use invitation codes.
type Ledger struct {
	store store.InvitationStore
	now   func() time.Time
}

// NewLedger creates a ledger backed by st.
func NewLedger(st store.InvitationStore) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// WithClock returns a copy of the ledger using now as its clock.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	return &Ledger{store: l.store, now: now}
}

// Create stores a new unused invitation. An empty code is replaced with a
// generated one.
func (l *Ledger) Create(ctx context.Context, in NewInvitation) (*models.Invitation, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		generated, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	if strings.TrimSpace(in.CompanyID) == "" {
		return nil, fmt.Errorf("%w: company id is required", ErrInvalidInvitation)
	}

	expiry, err := ParseExpiry(in.ExpiryDate)
	if err != nil {
		return nil, err
	}

	inv := &models.Invitation{
		Code:        code,
		CompanyID:   in.CompanyID,
		CompanyName: in.CompanyName,
		ExpiryDate:  expiry,
		CreatedAt:   l.now().UTC(),
		CreatedBy:   in.CreatedBy,
	}

	if err := l.store.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	telemetry.GetMetrics().InvitationsCreatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("code", code).
		Str("company_id", inv.CompanyID).
		Time("expires", expiry).
		Msg("invitation created")

	return inv, nil
}

// Get returns the invitation for code.
func (l *Ledger) Get(ctx context.Context, code string) (*models.Invitation, error) {
	return l.store.GetInvitation(ctx, code)
}

// Redeem consumes the invitation on behalf of userID and grants membership of
// its company. An invitation is expired from its expiry instant onwards.
func (l *Ledger) Redeem(ctx context.Context, code, userID, email string) (*models.Invitation, error) {
	inv, err := l.redeem(ctx, code, userID, email)
	telemetry.GetMetrics().InvitationsRedeemedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", redeemResult(err))))
	return inv, err
}

func redeemResult(err error) string {
	switch {
	case err == nil:
		return "redeemed"
	case errors.Is(err, store.ErrInvitationNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInvitationUsed):
		return "used"
	case errors.Is(err, ErrInvitationExpired):
		return "expired"
	}
	return "error"
}

func (l *Ledger) redeem(ctx context.Context, code, userID, email string) (*models.Invitation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInvitation)
	}

	inv, err := l.store.GetInvitation(ctx, code)
	if err != nil {
		return nil, err
	}
	if inv.Used {
		return nil, store.ErrInvitationUsed
	}

	now := l.now()
	if inv.IsExpired(now) {
		return nil, ErrInvitationExpired
	}

	redeemed, err := l.store.RedeemInvitation(ctx, store.Redemption{
		Code:   code,
		UserID: userID,
		Email:  strings.ToLower(strings.TrimSpace(email)),
		At:     now,
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("code", code).
		Str("company_id", redeemed.CompanyID).
		Str("user_id", userID).
		Msg("invitation redeemed")

	return redeemed, nil
}

// ParseExpiry reads an expiry timestamp in one of the accepted layouts and
// returns it in UTC.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: expiry date is required", ErrInvalidExpiry)
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, s)
}

// GenerateCode returns a random base58 invitation code.
func GenerateCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation code: %w", err)
	}
	return base58.Encode(buf), nil
}
