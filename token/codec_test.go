package token_test

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return raw
}

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	t.Helper()
	return signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})
}

func newCodec() *token.Codec {
	return token.NewCodec(token.WithNowFunc(func() time.Time { return fixedNow }))
}

func TestCodec_IsExpired(t *testing.T) {
	c := newCodec()

	for _, offset := range []time.Duration{-time.Second, -10 * time.Second, -24 * time.Hour} {
		require.True(t, c.IsExpired(tokenExpiringAt(t, fixedNow.Add(offset))), "offset %s", offset)
	}
	for _, offset := range []time.Duration{time.Second, time.Hour} {
		require.False(t, c.IsExpired(tokenExpiringAt(t, fixedNow.Add(offset))), "offset %s", offset)
	}
}

func TestCodec_ExpiresWithin(t *testing.T) {
	c := newCodec()

	t.Run("beyond threshold", func(t *testing.T) {
		raw := tokenExpiringAt(t, fixedNow.Add(time.Hour))
		require.False(t, c.IsExpired(raw))
		require.False(t, c.ExpiresWithin(raw, token.DefaultNearExpiryThreshold))
	})

	t.Run("inside threshold", func(t *testing.T) {
		raw := tokenExpiringAt(t, fixedNow.Add(2*time.Minute))
		require.False(t, c.IsExpired(raw))
		require.True(t, c.ExpiresWithin(raw, token.DefaultNearExpiryThreshold))
	})

	t.Run("already expired", func(t *testing.T) {
		require.True(t, c.ExpiresWithin(tokenExpiringAt(t, fixedNow.Add(-time.Minute)), token.DefaultNearExpiryThreshold))
	})

	t.Run("malformed", func(t *testing.T) {
		require.True(t, c.ExpiresWithin("garbage", token.DefaultNearExpiryThreshold))
	})
}

func TestCodec_MalformedTokensAreExpired(t *testing.T) {
	c := newCodec()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	cases := map[string]string{
		"empty":              "",
		"one segment":        "abc",
		"two segments":       "abc.def",
		"four segments":      "a.b.c.d",
		"non json payload":   header + "." + base64.RawURLEncoding.EncodeToString([]byte("not-json")) + ".sig",
		"non base64 payload": header + ".!!!.sig",
		"missing exp":        signedToken(t, jwt.MapClaims{"sub": "user-1"}),
		"string exp":         signedToken(t, jwt.MapClaims{"exp": "tomorrow"}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			require.True(t, c.IsExpired(raw))
			_, err := c.Expiry(raw)
			require.Error(t, err)
		})
	}
}

func TestCodec_ExpiryIgnoresSignature(t *testing.T) {
	c := newCodec()
	exp := fixedNow.Add(time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("key-the-client-never-sees"))
	require.NoError(t, err)

	got, err := c.Expiry(raw)
	require.NoError(t, err)
	require.Equal(t, exp.Unix(), got.Unix())
}

func TestCodec_ExpiryIgnoresHeader(t *testing.T) {
	c := newCodec()
	exp := fixedNow.Add(time.Hour)
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"user-1","exp":%d}`, exp.Unix())))

	headers := map[string]string{
		"unregistered alg": `{"alg":"ES256K"}`,
		"no alg":           `{"typ":"JWT"}`,
		"non json header":  `not-json`,
	}
	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			raw := base64.RawURLEncoding.EncodeToString([]byte(header)) + "." + payload + ".sig"

			got, err := c.Expiry(raw)
			require.NoError(t, err)
			require.Equal(t, exp.Unix(), got.Unix())
			require.False(t, c.IsExpired(raw))
			require.False(t, c.ExpiresWithin(raw, token.DefaultNearExpiryThreshold))
		})
	}
}

func TestCodec_Valid(t *testing.T) {
	c := newCodec()
	require.False(t, c.Valid(nil))
	require.False(t, c.Valid(&token.Pair{}))
	require.False(t, c.Valid(&token.Pair{AccessToken: tokenExpiringAt(t, fixedNow.Add(-time.Second))}))
	require.True(t, c.Valid(&token.Pair{AccessToken: tokenExpiringAt(t, fixedNow.Add(time.Minute))}))
}

func TestPairOAuth2RoundTrip(t *testing.T) {
	p := token.Pair{AccessToken: "a", RefreshToken: "r"}
	ot := p.OAuth2(time.Time{})
	require.Equal(t, "Bearer", ot.TokenType)
	require.Equal(t, p, token.PairFromOAuth2(ot, ""))

	ot.RefreshToken = ""
	require.Equal(t, "r-old", token.PairFromOAuth2(ot, "r-old").RefreshToken)
	require.True(t, token.PairFromOAuth2(nil, "x").IsZero())
}
