package devserver

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/pkg/errors"
)

const issuer = "storefront-devserver"

// AccessClaims are the claims of an issued access token.
type AccessClaims struct {
	Role  profile.Role `json:"role"`
	Email string       `json:"email,omitempty"`
	jwtlib.RegisteredClaims
}

// accessTokens signs and verifies HS256 access tokens.
type accessTokens struct {
	secret  []byte
	expiry  time.Duration
	nowFunc func() time.Time
}

// Create issues an access token for account.
func (t *accessTokens) Create(account *Account) (string, *AccessClaims, error) {
	now := t.nowFunc()
	claims := &AccessClaims{
		Role:  account.Role,
		Email: account.Email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   account.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(t.expiry)),
			ID:        uuid.New().String(), // Unique token ID for revocation
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to sign access token")
	}
	return signed, claims, nil
}

// Verify checks the signature, issuer and expiry of raw and returns its claims.
func (t *accessTokens) Verify(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims,
		func(*jwtlib.Token) (any, error) { return t.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(t.nowFunc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}
	return claims, nil
}
