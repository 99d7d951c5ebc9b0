package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"regportal/pkg/domain"
)

// MemoryStore keeps records in-process. Tests and local development use it
// in place of Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User // key: user ID
	email map[string]string      // email -> user ID
	apps  map[string]domain.Application
	order []string // application insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		email: make(map[string]string),
		apps:  make(map[string]domain.Application),
	}
}

// SaveUser registers a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if an email is already registered.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveApplication stores an application and tracks insertion order.
func (m *MemoryStore) SaveApplication(a domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apps[a.ID]; !exists {
		m.order = append(m.order, a.ID)
	}
	m.apps[a.ID] = a
	return nil
}

// ListApplications pages through applications in insertion order with the
// same substring filter semantics as the GORM store.
func (m *MemoryStore) ListApplications(search string, page, pageSize int) (domain.ApplicationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	m.mu.RLock()
	matched := make([]domain.Application, 0, len(m.order))
	term := strings.ToLower(search)
	for _, id := range m.order {
		a, ok := m.apps[id]
		if !ok {
			continue
		}
		if term == "" || strings.Contains(strings.ToLower(a.FullName), term) {
			matched = append(matched, a)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return domain.ApplicationPage{
		Items:      matched[start:end],
		Page:       page,
		TotalPages: totalPages(int64(len(matched)), pageSize),
	}, nil
}

// GetApplicationByRegID finds an application by its public registration ID.
func (m *MemoryStore) GetApplicationByRegID(regID string) (domain.Application, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.apps {
		if a.RegistrationID == regID {
			return a, true, nil
		}
	}
	return domain.Application{}, false, nil
}

// GetApplication retrieves an application by internal ID.
func (m *MemoryStore) GetApplication(id string) (domain.Application, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apps[id]
	return a, ok, nil
}

// UpdateApplication applies a partial update, keeping file references when
// no replacement was supplied.
func (m *MemoryStore) UpdateApplication(id string, upd ApplicationUpdate) (domain.Application, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return domain.Application{}, false, nil
	}
	a.FullName = upd.FullName
	a.FatherName = upd.FatherName
	a.DateOfBirth = upd.DateOfBirth
	a.Gender = upd.Gender
	a.Category = upd.Category
	a.Mobile = upd.Mobile
	a.Email = upd.Email
	a.Graduation = upd.Graduation
	a.Percentage = upd.Percentage
	a.PassingYear = upd.PassingYear
	if upd.PhotoRef != nil {
		a.PhotoRef = *upd.PhotoRef
	}
	if upd.SignatureRef != nil {
		a.SignatureRef = *upd.SignatureRef
	}
	a.UpdatedAt = time.Now().UTC()
	m.apps[id] = a
	return a, true, nil
}

// DeleteApplication removes an application.
func (m *MemoryStore) DeleteApplication(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[id]; !ok {
		return false, nil
	}
	delete(m.apps, id)
	filtered := m.order[:0]
	for _, item := range m.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.order = filtered
	return true, nil
}
