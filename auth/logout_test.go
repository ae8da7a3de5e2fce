package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-session/identity/identityfake"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/stretchr/testify/require"
)

func TestLogout_OtherRoleValidBecomesPrimary(t *testing.T) {
	for _, role := range profile.Roles {
		t.Run("logout "+role.String(), func(t *testing.T) {
			f := newFixture(t)
			c := f.initialized(t, "/")
			f.loginBoth(t, c)

			require.NoError(t, c.Logout(context.Background(), role))

			other := role.Other()
			require.Equal(t, other, c.State().PrimaryRole)
			require.Equal(t, c.State().Session(other).Profile, c.User())
			require.True(t, c.IsAuthenticated())
			require.False(t, c.State().Session(role).Exists())
			require.Empty(t, sessionstore.AccessToken(f.store, role))
			require.NotEmpty(t, sessionstore.AccessToken(f.store, other))
		})
	}
}

func TestLogout_OtherRoleExpiredIsClearedToo(t *testing.T) {
	f := newFixture(t)
	c := f.initialized(t, "/")
	f.acceptLogin(t, adminProfile(), fixedNow.Add(time.Hour))
	f.acceptLogin(t, customerProfile(), fixedNow.Add(time.Minute))
	_, err := c.Login(context.Background(), "anna@shop.dk", "secret", profile.RoleAdmin)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "mette@nordic.dk", "secret", profile.RoleCustomer)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, c.Logout(context.Background(), profile.RoleAdmin))

	require.Nil(t, c.User())
	require.Equal(t, profile.Role(""), c.State().PrimaryRole)
	require.False(t, c.State().Customer.Exists())
	require.Nil(t, c.CustomerUser())
	require.Empty(t, sessionstore.AccessToken(f.store, profile.RoleCustomer))
}

func TestLogout_OnlySession(t *testing.T) {
	f := newFixture(t)
	c := f.initialized(t, "/")
	f.acceptLogin(t, customerProfile(), fixedNow.Add(time.Hour))
	_, err := c.Login(context.Background(), "mette@nordic.dk", "secret", profile.RoleCustomer)
	require.NoError(t, err)

	require.NoError(t, c.Logout(context.Background(), profile.RoleCustomer))
	require.Nil(t, c.User())
	require.False(t, c.IsAuthenticated())
	require.Equal(t, 1, f.identity.Calls(identityfake.EndpointLogout))
}

func TestLogout_IdentityServiceSeesStoredBearer(t *testing.T) {
	f := newFixture(t)
	c := f.initialized(t, "/")
	f.loginBoth(t, c)

	var bearer string
	f.identity.LogoutFunc = func(_ context.Context, role profile.Role) error {
		bearer = sessionstore.AccessToken(f.store, role)
		return errors.ErrUnauthorized
	}

	require.NoError(t, c.Logout(context.Background(), profile.RoleAdmin))
	require.NotEmpty(t, bearer)
	require.Empty(t, sessionstore.AccessToken(f.store, profile.RoleAdmin))
}

func TestLogout_InvalidRole(t *testing.T) {
	f := newFixture(t)
	c := f.initialized(t, "/")
	require.ErrorIs(t, c.Logout(context.Background(), profile.Role("")), errors.ErrInvalidRole)
	require.Equal(t, 0, f.identity.Calls(identityfake.EndpointLogout))
}

func TestLogoutAll(t *testing.T) {
	f := newFixture(t)
	c := f.initialized(t, "/")
	f.loginBoth(t, c)

	c.LogoutAll(context.Background())

	require.Nil(t, c.User())
	require.Nil(t, c.AdminUser())
	require.Nil(t, c.CustomerUser())
	require.False(t, c.IsAdminAuthenticated())
	require.False(t, c.IsCustomerAuthenticated())
	require.Equal(t, 2, f.identity.Calls(identityfake.EndpointLogout))
	for _, role := range profile.Roles {
		require.Empty(t, sessionstore.AccessToken(f.store, role))
		user, err := f.store.User(role)
		require.NoError(t, err)
		require.Nil(t, user)
	}
}

func TestLogout_SameRoleLoginDuringLogoutSurvives(t *testing.T) {
	f := newFixture(t)
	c := f.initialized(t, "/")
	f.acceptLogin(t, customerProfile(), fixedNow.Add(time.Hour))
	_, err := c.Login(context.Background(), "mette@nordic.dk", "secret", profile.RoleCustomer)
	require.NoError(t, err)

	relogin := f.acceptLogin(t, customerProfile(), fixedNow.Add(2*time.Hour))
	f.identity.LogoutFunc = func(ctx context.Context, role profile.Role) error {
		_, err := c.Login(ctx, "mette@nordic.dk", "secret", profile.RoleCustomer)
		return err
	}

	require.NoError(t, c.Logout(context.Background(), profile.RoleCustomer))

	require.True(t, c.IsCustomerAuthenticated())
	require.Equal(t, profile.RoleCustomer, c.State().PrimaryRole)
	require.Equal(t, relogin.AccessToken, sessionstore.AccessToken(f.store, profile.RoleCustomer))
	stored, err := f.store.User(profile.RoleCustomer)
	require.NoError(t, err)
	require.NotNil(t, stored)

	c.CheckSessions("timer")
	require.True(t, c.IsCustomerAuthenticated())
	require.Equal(t, profile.RoleCustomer, c.State().PrimaryRole)
}
