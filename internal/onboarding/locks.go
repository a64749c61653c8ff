package onboarding

import "sync"

// tenantLocks serializes array rebuilds per company. Entries are removed once
// no goroutine holds or waits on them.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[string]*tenantLock
}

type tenantLock struct {
	mu   sync.Mutex
	refs int
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{locks: make(map[string]*tenantLock)}
}

// lock acquires the company's mutex and returns the function releasing it.
func (t *tenantLocks) lock(companyID string) func() {
	t.mu.Lock()
	l, ok := t.locks[companyID]
	if !ok {
		l = &tenantLock{}
		t.locks[companyID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, companyID)
		}
		t.mu.Unlock()
	}
}
