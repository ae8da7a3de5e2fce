package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/identity/identityfake"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore/memstore"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type testClock struct {
	now  time.Time
	lock sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return raw
}

func pairExpiringAt(t *testing.T, exp time.Time, refresh string) token.Pair {
	t.Helper()
	return token.Pair{AccessToken: accessToken(t, exp), RefreshToken: refresh}
}

func adminProfile() *profile.AdminProfile {
	return &profile.AdminProfile{ID: "a-1", Name: "Anna Admin", Email: "anna@shop.dk", Picture: "https://cdn.shop.dk/anna.png"}
}

func richAdminProfile() *profile.AdminProfile {
	a := adminProfile()
	a.Name = "Anna K. Admin"
	return a
}

func customerProfile() *profile.CustomerProfile {
	return &profile.CustomerProfile{
		ID:            "c-1",
		CompanyName:   "Nordic Tools ApS",
		ContactName:   "Mette Jensen",
		Email:         "mette@nordic.dk",
		Phone:         "+45 12 34 56 78",
		VATNumber:     "DK12345678",
		Billing:       profile.BillingAddress{Street: "Havnegade 1", PostalCode: "1058", City: "København K", Country: "DK"},
		DiscountGroup: "wholesale",
	}
}

func incompleteCustomerProfile() *profile.CustomerProfile {
	c := customerProfile()
	c.CompanyName = ""
	return c
}

type fixture struct {
	clock    *testClock
	codec    *token.Codec
	store    *memstore.MemStore
	identity *identityfake.FakeIdentityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: fixedNow}
	return &fixture{
		clock:    clock,
		codec:    token.NewCodec(token.WithNowFunc(clock.Now)),
		store:    memstore.New(),
		identity: identityfake.NewFakeIdentityService(),
	}
}

// persist seeds the store with a session for p's role expiring at exp.
func (f *fixture) persist(t *testing.T, p profile.Profile, exp time.Time) token.Pair {
	t.Helper()
	pair := pairExpiringAt(t, exp, "refresh-"+p.Role().String())
	require.NoError(t, f.store.SetTokens(p.Role(), pair))
	require.NoError(t, f.store.SetUser(p))
	return pair
}

func (f *fixture) controller(t *testing.T, path string, options ...auth.ControllerOption) *auth.Controller {
	t.Helper()
	options = append([]auth.ControllerOption{
		auth.WithCodec(f.codec),
		auth.WithRouter(auth.StaticPath(path)),
		auth.WithLogger(zerolog.Nop()),
	}, options...)
	c, err := auth.NewController(auth.Dependencies{Store: f.store, Identity: f.identity}, options...)
	require.NoError(t, err)
	return c
}

// initialized returns a controller that has completed initialization at path.
func (f *fixture) initialized(t *testing.T, path string, options ...auth.ControllerOption) *auth.Controller {
	t.Helper()
	c := f.controller(t, path, options...)
	c.Initialize(context.Background())
	c.Wait()
	require.Equal(t, auth.InitDone, c.InitPhase())
	return c
}

// acceptLogin scripts a successful login for p's role returning tokens expiring at exp.
func (f *fixture) acceptLogin(t *testing.T, p profile.Profile, exp time.Time) token.Pair {
	t.Helper()
	pair := pairExpiringAt(t, exp, "refresh-"+p.Role().String())
	login := func(context.Context, string, string) (*identity.LoginResult, error) {
		return &identity.LoginResult{Success: true, User: p, Tokens: pair}, nil
	}
	if p.Role() == profile.RoleAdmin {
		f.identity.LoginAdminFunc = login
	} else {
		f.identity.LoginCustomerFunc = login
	}
	return pair
}

// loginBoth logs in admin then customer with tokens valid for an hour.
func (f *fixture) loginBoth(t *testing.T, c *auth.Controller) {
	t.Helper()
	f.acceptLogin(t, adminProfile(), fixedNow.Add(time.Hour))
	f.acceptLogin(t, customerProfile(), fixedNow.Add(time.Hour))
	_, err := c.Login(context.Background(), "anna@shop.dk", "secret", profile.RoleAdmin)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "mette@nordic.dk", "secret", profile.RoleCustomer)
	require.NoError(t, err)
}

// refreshInto scripts a successful refresh that persists pair the way the identity service does.
func (f *fixture) refreshInto(pair token.Pair) {
	f.identity.RefreshFunc = func(_ context.Context, role profile.Role) (*identity.RefreshResult, error) {
		if err := f.store.SetTokens(role, pair); err != nil {
			return nil, err
		}
		return &identity.RefreshResult{Success: true}, nil
	}
}
