package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-session/internal/errors"
)

// DefaultNearExpiryThreshold is the remaining lifetime under which a token is
// eligible for proactive refresh.
const DefaultNearExpiryThreshold = 300 * time.Second

// Codec reads the expiry claim of bearer tokens.
//
// The signature is not verified: the client never holds the verification key, and
// the decoded expiry only drives local decisions such as showing the login screen
// sooner. The identity service remains the authority on token validity.
type Codec struct {
	parser  *jwt.Parser
	nowFunc func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(options ...CodecOption) *Codec {
	c := &Codec{
		parser:  jwt.NewParser(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Expiry decodes the token payload and returns its exp claim. Only the middle
// segment is read; the header is not interpreted.
func (c *Codec) Expiry(rawToken string) (time.Time, error) {
	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidToken, "expected 3 segments, got %d", len(parts))
	}
	payload, err := c.parser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidToken, "decode payload: %v", err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidToken, "payload: %v", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidToken, "exp claim: %v", err)
	}
	if exp == nil {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidToken, "missing exp claim")
	}
	return exp.Time, nil
}

// IsExpired reports whether the token's exp lies strictly in the past.
// A token that cannot be decoded is expired.
func (c *Codec) IsExpired(rawToken string) bool {
	exp, err := c.Expiry(rawToken)
	if err != nil {
		return true
	}
	return exp.Before(c.nowFunc())
}

// ExpiresWithin reports whether the token expires before now+threshold.
// A token that cannot be decoded always qualifies.
func (c *Codec) ExpiresWithin(rawToken string, threshold time.Duration) bool {
	exp, err := c.Expiry(rawToken)
	if err != nil {
		return true
	}
	return exp.Before(c.nowFunc().Add(threshold))
}

// Valid is the inverse of IsExpired for a possibly absent pair.
func (c *Codec) Valid(pair *Pair) bool {
	return pair != nil && pair.AccessToken != "" && !c.IsExpired(pair.AccessToken)
}
