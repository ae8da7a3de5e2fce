package token

import (
	"time"

	"golang.org/x/oauth2"
)

// Pair is the access/refresh credential pair owned by one role's session.
// Pairs are replaced wholesale, never mutated in place.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (p Pair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// OAuth2 converts the pair into a bearer token for x/oauth2 transports.
// expiry may be zero when unknown.
func (p Pair) OAuth2(expiry time.Time) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: p.RefreshToken,
		Expiry:       expiry,
	}
}

// PairFromOAuth2 converts an x/oauth2 token. A missing refresh token in t keeps
// previousRefresh, as refresh responses often omit an unrotated refresh token.
func PairFromOAuth2(t *oauth2.Token, previousRefresh string) Pair {
	if t == nil {
		return Pair{}
	}
	refresh := t.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return Pair{AccessToken: t.AccessToken, RefreshToken: refresh}
}
