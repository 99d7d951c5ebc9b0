package store

import (
	"sync"
	"time"

	"regportal/internal/util"
	"regportal/pkg/domain"
)

type memorySession struct {
	session   domain.Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in-process with lazy expiry. Tests use
// it; the Advance hook lets them expire a session without sleeping.
type MemorySessionStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	sess map[string]memorySession
}

// NewMemorySessionStore initializes an empty in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:  ttl,
		now:  time.Now,
		sess: make(map[string]memorySession),
	}
}

// NewSession creates a session token for a user.
func (m *MemorySessionStore) NewSession(userID, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := util.NewID()
	m.sess[token] = memorySession{
		session:   domain.Session{UserID: userID, Email: email},
		expiresAt: m.now().Add(m.ttl),
	}
	return token, nil
}

// GetSession returns the session bound to a token, dropping it when the
// TTL has passed.
func (m *MemorySessionStore) GetSession(token string) (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sess[token]
	if !ok {
		return domain.Session{}, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.sess, token)
		return domain.Session{}, false, nil
	}
	return entry.session, true, nil
}

// DeleteSession removes a token mapping.
func (m *MemorySessionStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}

// Advance shifts the store clock forward. Test hook for expiry behavior.
func (m *MemorySessionStore) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.now
	m.now = func() time.Time { return base().Add(d) }
}
