package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// Store implements store.Store using in-memory storage.
// A single mutex guards every collection so that multi-document operations
// commit atomically. Data is lost on restart.
type Store struct {
	mu sync.RWMutex

	users       map[string]*models.User                     // user_id -> User
	companies   map[string]*models.Company                  // company_id -> Company
	steps       map[string]map[string]models.OnboardingStep // company_id -> step_id -> step
	invitations map[string]*models.Invitation               // code -> Invitation
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]*models.User),
		companies:   make(map[string]*models.Company),
		steps:       make(map[string]map[string]models.OnboardingStep),
		invitations: make(map[string]*models.Invitation),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(u), nil
}

// GetUserByEmail returns the first user, ordered by id, with exactly this email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(s.users))
	for _, id := range ids {
		if s.users[id].Email == email {
			return cloneUser(s.users[id]), nil
		}
	}

	return nil, store.ErrUserNotFound
}

// CreateUser stores a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserExists
	}

	s.users[user.UserID] = cloneUser(user)

	return nil
}

// UpdateUser overwrites display name, role and profile.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.UserID]
	if !ok {
		return store.ErrUserNotFound
	}

	existing.DisplayName = user.DisplayName
	existing.Role = user.Role
	existing.Profile = maps.Clone(user.Profile)

	return nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.User, 0, len(s.users))
	for _, id := range slices.Sorted(maps.Keys(s.users)) {
		result = append(result, cloneUser(s.users[id]))
	}

	return result, nil
}

// CreateCompany stores a new company. Member ids on the input are ignored.
func (s *Store) CreateCompany(ctx context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.companies[company.CompanyID]; exists {
		return store.ErrCompanyExists
	}

	clone := cloneCompany(company)
	clone.UserIDs = []string{}
	s.companies[company.CompanyID] = clone

	return nil
}

// GetCompany retrieves a company by id.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[companyID]
	if !ok {
		return nil, store.ErrCompanyNotFound
	}

	return cloneCompany(c), nil
}

// ListCompanies returns every company ordered by id.
func (s *Store) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Company, 0, len(s.companies))
	for _, id := range slices.Sorted(maps.Keys(s.companies)) {
		result = append(result, cloneCompany(s.companies[id]))
	}

	return result, nil
}

// UpdateBilling overwrites the billing sub-record.
func (s *Store) UpdateBilling(ctx context.Context, companyID string, billing map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return store.ErrCompanyNotFound
	}

	c.Billing = maps.Clone(billing)

	return nil
}

// GetStep reads one subcollection document.
func (s *Store) GetStep(ctx context.Context, companyID, stepID string) (*models.OnboardingStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	step, ok := s.steps[companyID][stepID]
	if !ok {
		return nil, store.ErrStepNotFound
	}
	step.ID = stepID

	return &step, nil
}

// ListSteps returns the subcollection ordered by step id.
func (s *Store) ListSteps(ctx context.Context, companyID string) ([]models.OnboardingStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.steps[companyID]
	result := make([]models.OnboardingStep, 0, len(docs))
	for id, step := range docs {
		step.ID = id
		result = append(result, step)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// PutSteps writes each step keyed by its id.
func (s *Store) PutSteps(ctx context.Context, companyID string, steps []models.OnboardingStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putStepsLocked(companyID, steps)

	return nil
}

// DeleteSteps removes the whole subcollection for the company.
func (s *Store) DeleteSteps(ctx context.Context, companyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.steps[companyID])
	delete(s.steps, companyID)

	return n, nil
}

// SetStepArray overwrites the denormalized array on the company.
func (s *Store) SetStepArray(ctx context.Context, companyID string, steps []models.OnboardingStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return store.ErrCompanyNotFound
	}

	c.OnboardingSteps = slices.Clone(steps)

	return nil
}

// SaveStep writes the step document and the array together.
func (s *Store) SaveStep(ctx context.Context, companyID string, step models.OnboardingStep, array []models.OnboardingStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return store.ErrCompanyNotFound
	}

	s.putStepsLocked(companyID, []models.OnboardingStep{step})
	c.OnboardingSteps = slices.Clone(array)

	return nil
}

func (s *Store) putStepsLocked(companyID string, steps []models.OnboardingStep) {
	docs, ok := s.steps[companyID]
	if !ok {
		docs = make(map[string]models.OnboardingStep, len(steps))
		s.steps[companyID] = docs
	}
	for _, step := range steps {
		docs[step.ID] = step
	}
}

// CreateInvitation stores a new invitation.
func (s *Store) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invitations[inv.Code]; exists {
		return store.ErrInvitationExists
	}

	clone := *inv
	s.invitations[inv.Code] = &clone

	return nil
}

// GetInvitation retrieves an invitation by code.
func (s *Store) GetInvitation(ctx context.Context, code string) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invitations[code]
	if !ok {
		return nil, store.ErrInvitationNotFound
	}

	clone := *inv
	return &clone, nil
}

// RedeemInvitation marks the invitation used and grants membership in one step.
func (s *Store) RedeemInvitation(ctx context.Context, r store.Redemption) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[r.Code]
	if !ok {
		return nil, store.ErrInvitationNotFound
	}
	if inv.Used {
		return nil, store.ErrInvitationUsed
	}

	company, ok := s.companies[inv.CompanyID]
	if !ok {
		return nil, store.ErrCompanyNotFound
	}

	user, ok := s.users[r.UserID]
	if !ok {
		user = models.NewUser(r.UserID, r.Email, "", r.At)
		s.users[r.UserID] = user

		log.Debug().Str("user_id", r.UserID).Msg("created minimal user for invitation redemption")
	}

	at := r.At.UTC()
	inv.Used = true
	inv.UsedBy = r.UserID
	inv.UsedAt = &at
	inv.UserEmail = r.Email

	addUnique(&user.CompanyIDs, company.CompanyID)
	addUnique(&company.UserIDs, user.UserID)

	clone := *inv
	return &clone, nil
}

// AddMembership adds both sides of a user/company membership.
func (s *Store) AddMembership(ctx context.Context, userID, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, company, err := s.membersLocked(userID, companyID)
	if err != nil {
		return err
	}

	addUnique(&user.CompanyIDs, companyID)
	addUnique(&company.UserIDs, userID)

	return nil
}

// RemoveMembership removes both sides of a user/company membership.
func (s *Store) RemoveMembership(ctx context.Context, userID, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, company, err := s.membersLocked(userID, companyID)
	if err != nil {
		return err
	}

	user.CompanyIDs = slices.DeleteFunc(user.CompanyIDs, func(id string) bool { return id == companyID })
	company.UserIDs = slices.DeleteFunc(company.UserIDs, func(id string) bool { return id == userID })

	return nil
}

func (s *Store) membersLocked(userID, companyID string) (*models.User, *models.Company, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, nil, store.ErrUserNotFound
	}
	company, ok := s.companies[companyID]
	if !ok {
		return nil, nil, store.ErrCompanyNotFound
	}
	return user, company, nil
}

func addUnique(set *[]string, id string) {
	if !slices.Contains(*set, id) {
		*set = append(*set, id)
	}
}

// Clone to avoid external modifications
func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.CompanyIDs = slices.Clone(u.CompanyIDs)
	if clone.CompanyIDs == nil {
		clone.CompanyIDs = []string{}
	}
	clone.Profile = maps.Clone(u.Profile)
	return &clone
}

func cloneCompany(c *models.Company) *models.Company {
	clone := *c
	clone.UserIDs = slices.Clone(c.UserIDs)
	if clone.UserIDs == nil {
		clone.UserIDs = []string{}
	}
	clone.OnboardingSteps = slices.Clone(c.OnboardingSteps)
	if clone.OnboardingSteps == nil {
		clone.OnboardingSteps = []models.OnboardingStep{}
	}
	clone.Billing = maps.Clone(c.Billing)
	clone.TeamMembers = slices.Clone(c.TeamMembers)
	clone.DataSharing = maps.Clone(c.DataSharing)
	clone.OutputLibrary = maps.Clone(c.OutputLibrary)
	return &clone
}
