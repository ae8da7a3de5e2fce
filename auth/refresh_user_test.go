package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/identity/identityfake"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/stretchr/testify/require"
)

func TestRefreshUser_ExpiredPrimaryIsClearedWithoutRefresh(t *testing.T) {
	f := newFixture(t)
	f.persist(t, adminProfile(), fixedNow.Add(10*time.Minute))
	c := f.initialized(t, "/admin")
	require.Equal(t, adminProfile(), c.User())

	f.clock.Advance(11 * time.Minute)
	c.RefreshUser(context.Background())

	require.Nil(t, c.User())
	require.Nil(t, c.AdminUser())
	require.False(t, c.IsAuthenticated())
	require.Equal(t, 0, f.identity.Calls(identityfake.EndpointRefresh))
	require.Equal(t, 0, f.identity.Calls(identityfake.EndpointAdminProfile))
	require.Empty(t, sessionstore.AccessToken(f.store, profile.RoleAdmin))
}

func TestRefreshUser_IncompleteCustomerNeverReplacesCached(t *testing.T) {
	f := newFixture(t)
	f.persist(t, customerProfile(), fixedNow.Add(time.Hour))
	c := f.initialized(t, "/customer")
	before := c.State()

	f.identity.CustomerProfileFunc = func(context.Context) (*profile.CustomerProfile, error) {
		return incompleteCustomerProfile(), nil
	}
	c.RefreshUser(context.Background())

	after := c.State()
	require.Equal(t, customerProfile(), c.CustomerUser())
	require.Equal(t, before.PrimaryRole, after.PrimaryRole)
	require.Equal(t, before.Primary(), after.Primary())
	require.False(t, after.IsProfileRefreshing)

	stored, err := f.store.User(profile.RoleCustomer)
	require.NoError(t, err)
	require.Equal(t, customerProfile(), stored)
}

func TestRefreshUser_ReplacesProfileAndPrimary(t *testing.T) {
	f := newFixture(t)
	f.persist(t, adminProfile(), fixedNow.Add(time.Hour))
	c := f.initialized(t, "/")
	f.identity.AdminProfileFunc = func(context.Context) (*profile.AdminProfile, error) {
		return richAdminProfile(), nil
	}

	c.RefreshUser(context.Background())

	require.Equal(t, richAdminProfile(), c.AdminUser())
	require.Equal(t, richAdminProfile(), c.User())
}

func TestRefreshUser_FetchFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.persist(t, adminProfile(), fixedNow.Add(time.Hour))
	c := f.initialized(t, "/")
	before := c.State()
	f.identity.AdminProfileFunc = func(context.Context) (*profile.AdminProfile, error) {
		return nil, errors.ErrProfileFetch
	}

	c.RefreshUser(context.Background())

	require.Equal(t, before, c.State())
	require.Equal(t, 0, f.identity.Calls(identityfake.EndpointRefresh))
}

func TestRefreshUser_Unauthorized(t *testing.T) {
	t.Run("refresh then retry", func(t *testing.T) {
		f := newFixture(t)
		f.persist(t, adminProfile(), fixedNow.Add(time.Hour))
		c := f.initialized(t, "/")

		renewed := pairExpiringAt(t, fixedNow.Add(2*time.Hour), "refresh-admin-2")
		f.refreshInto(renewed)
		f.identity.AdminProfileFunc = func(context.Context) (*profile.AdminProfile, error) {
			if f.identity.Calls(identityfake.EndpointRefresh) == 0 {
				return nil, errors.Wrapf(errors.ErrUnauthorized, "GET /api/admin/profile")
			}
			return richAdminProfile(), nil
		}

		c.RefreshUser(context.Background())

		require.Equal(t, 1, f.identity.Calls(identityfake.EndpointRefresh))
		require.Equal(t, 2, f.identity.Calls(identityfake.EndpointAdminProfile))
		require.Equal(t, richAdminProfile(), c.User())
		require.Equal(t, &renewed, c.State().Admin.Tokens)
	})

	t.Run("refresh failure clears role", func(t *testing.T) {
		f := newFixture(t)
		f.persist(t, customerProfile(), fixedNow.Add(time.Hour))
		f.identity.CustomerProfileFunc = func(context.Context) (*profile.CustomerProfile, error) {
			return nil, errors.ErrUnauthorized
		}
		c := f.initialized(t, "/customer")
		require.Equal(t, customerProfile(), c.User())

		f.identity.RefreshFunc = func(context.Context, profile.Role) (*identity.RefreshResult, error) {
			return &identity.RefreshResult{Success: false, Message: "refresh token revoked"}, nil
		}
		c.RefreshUser(context.Background())

		require.Nil(t, c.User())
		require.False(t, c.IsCustomerAuthenticated())
		require.Empty(t, sessionstore.AccessToken(f.store, profile.RoleCustomer))
	})
}

func TestRefreshUser_NoPrimaryIsNoop(t *testing.T) {
	f := newFixture(t)
	f.persist(t, adminProfile(), fixedNow.Add(time.Hour))
	c := f.initialized(t, "/customer")
	require.Nil(t, c.User())

	c.RefreshUser(context.Background())

	require.Equal(t, 0, f.identity.Calls(identityfake.EndpointAdminProfile))
	require.Equal(t, 0, f.identity.Calls(identityfake.EndpointCustomerProfile))
	require.True(t, c.IsAdminAuthenticated())
}
