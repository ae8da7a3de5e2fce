package devserver

import (
	"sync"
	"time"

	"github.com/jrsteele09/storefront-session/profile"
)

// loginKey identifies one account's login for one role.
type loginKey struct {
	accountID string
	role      profile.Role
}

// RevokedTokenCache remembers access tokens ended by logout before their expiry,
// grouped by the account and role they were issued to.
type RevokedTokenCache interface {
	// Revoke records the token and returns how many unexpired tokens are now
	// revoked for the same login.
	Revoke(claims *AccessClaims) int
	IsRevoked(claims *AccessClaims) bool
	Cleanup(now time.Time)
}

type memRevokedTokenCache struct {
	byLogin map[loginKey]map[string]time.Time // jti -> exp
	mu      sync.RWMutex
}

func NewInMemoryRevokedTokenCache() RevokedTokenCache {
	return &memRevokedTokenCache{
		byLogin: make(map[loginKey]map[string]time.Time),
	}
}

func keyOf(claims *AccessClaims) loginKey {
	return loginKey{accountID: claims.Subject, role: claims.Role}
}

func (c *memRevokedTokenCache) Revoke(claims *AccessClaims) int {
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := keyOf(claims)
	tokens, ok := c.byLogin[key]
	if !ok {
		tokens = make(map[string]time.Time)
		c.byLogin[key] = tokens
	}
	tokens[claims.ID] = exp
	return len(tokens)
}

func (c *memRevokedTokenCache) IsRevoked(claims *AccessClaims) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, revoked := c.byLogin[keyOf(claims)][claims.ID]
	return revoked
}

// Cleanup drops tokens that have expired anyway, and logins left with none.
func (c *memRevokedTokenCache) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, tokens := range c.byLogin {
		for jti, exp := range tokens {
			if now.After(exp) {
				delete(tokens, jti)
			}
		}
		if len(tokens) == 0 {
			delete(c.byLogin, key)
		}
	}
}
