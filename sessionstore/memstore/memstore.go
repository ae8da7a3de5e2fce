package memstore

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/token"
)

var _ sessionstore.Store = (*MemStore)(nil)

// MemStore is an in-memory sessionstore.Store. Profiles are copied on the way in
// and out so callers never share a record with the store.
type MemStore struct {
	tokens   map[profile.Role]token.Pair
	profiles map[profile.Role]profile.Profile
	lock     sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		tokens:   make(map[profile.Role]token.Pair),
		profiles: make(map[profile.Role]profile.Profile),
	}
}

func (m *MemStore) Tokens(role profile.Role) (*token.Pair, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("[MemStore.Tokens] %q: %w", role, errors.ErrInvalidRole)
	}
	m.lock.RLock()
	defer m.lock.RUnlock()

	pair, ok := m.tokens[role]
	if !ok {
		return nil, nil
	}
	return &pair, nil
}

func (m *MemStore) SetTokens(role profile.Role, pair token.Pair) error {
	if !role.Valid() {
		return fmt.Errorf("[MemStore.SetTokens] %q: %w", role, errors.ErrInvalidRole)
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tokens[role] = pair
	return nil
}

func (m *MemStore) User(role profile.Role) (profile.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("[MemStore.User] %q: %w", role, errors.ErrInvalidRole)
	}
	m.lock.RLock()
	defer m.lock.RUnlock()

	p, ok := m.profiles[role]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (m *MemStore) SetUser(p profile.Profile) error {
	if profile.IsNil(p) {
		return fmt.Errorf("[MemStore.SetUser] profile is required")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.profiles[p.Role()] = clone(p)
	return nil
}

func (m *MemStore) Clear(role profile.Role) error {
	if !role.Valid() {
		return fmt.Errorf("[MemStore.Clear] %q: %w", role, errors.ErrInvalidRole)
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.tokens, role)
	delete(m.profiles, role)
	return nil
}

func clone(p profile.Profile) profile.Profile {
	switch v := p.(type) {
	case *profile.AdminProfile:
		c := *v
		return &c
	case *profile.CustomerProfile:
		c := *v
		return &c
	}
	return p
}
