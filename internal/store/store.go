package store

import (
	"context"
	"errors"
)

// Sentinel errors for common error conditions
var (
	ErrThrottled = errors.New("store request throttled")
)

// Store is the full document store used by the service. Each backend
// (memory, aws, postgres) implements every method so that operations touching
// more than one document can be committed atomically.
type Store interface {
	UserStore
	CompanyStore
	StepStore
	InvitationStore
	MembershipStore
}

// Pinger is implemented by stores that can report backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
