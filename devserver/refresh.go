package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jrsteele09/storefront-session/profile"
	"github.com/pkg/errors"
)

const refreshTokenBytes = 32

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// StoredRefreshToken is the server-side record of an opaque refresh token.
// The client only ever sees Token.
type StoredRefreshToken struct {
	Token     string
	AccountID string
	Role      profile.Role
	Iat       time.Time
}

type RefreshRepo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByAccountID(accountID string) (*StoredRefreshToken, error)
}

// refreshManager issues rotating refresh tokens, one per account.
type refreshManager struct {
	repo    RefreshRepo
	expiry  time.Duration
	nowFunc func() time.Time
}

// Create replaces any refresh token the account holds with a new one.
func (m *refreshManager) Create(accountID string, role profile.Role) (string, error) {
	if existing, err := m.repo.GetByAccountID(accountID); err == nil && existing != nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", errors.Wrap(err, "failed to delete existing refresh token")
		}
	}

	tokenBytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "failed to generate random bytes")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:     tokenStr,
		AccountID: accountID,
		Role:      role,
		Iat:       m.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "failed to store refresh token")
	}
	return tokenStr, nil
}

func (m *refreshManager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

func (m *refreshManager) Delete(token string) error {
	return m.repo.Delete(token)
}

func (m *refreshManager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.expiry
}

var _ RefreshRepo = (*memRefreshRepo)(nil)

type memRefreshRepo struct {
	tokens     map[string]*StoredRefreshToken
	accountIDs map[string]string // account id to token
	lock       sync.RWMutex
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{
		tokens:     make(map[string]*StoredRefreshToken),
		accountIDs: make(map[string]string),
	}
}

func (r *memRefreshRepo) Upsert(refreshToken *StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.tokens[refreshToken.Token] = refreshToken
	r.accountIDs[refreshToken.AccountID] = refreshToken.Token
	return nil
}

func (r *memRefreshRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return ErrRefreshTokenNotFound
	}
	delete(r.accountIDs, rt.AccountID)
	delete(r.tokens, token)
	return nil
}

func (r *memRefreshRepo) Get(token string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	return rt, nil
}

func (r *memRefreshRepo) GetByAccountID(accountID string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	token, ok := r.accountIDs[accountID]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	return r.tokens[token], nil
}
