package auth_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/devserver"
	"github.com/jrsteele09/storefront-session/identity/restclient"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore/memstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// liveController builds a controller talking to a devserver over HTTP.
func liveController(t *testing.T, store *memstore.MemStore, url, path string) *auth.Controller {
	t.Helper()
	client, err := restclient.New(url, store, restclient.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	c, err := auth.NewController(auth.Dependencies{Store: store, Identity: client},
		auth.WithRouter(auth.StaticPath(path)),
		auth.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	return c
}

func TestAgainstDevServer(t *testing.T) {
	srv, err := devserver.New("integration", devserver.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, srv.SeedDemoAccounts())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx := context.Background()
	store := memstore.New()

	first := liveController(t, store, ts.URL, "/")
	first.Initialize(ctx)
	_, err = first.Login(ctx, devserver.DemoAdminEmail, devserver.DemoAdminPassword, profile.RoleAdmin)
	require.NoError(t, err)
	_, err = first.Login(ctx, devserver.DemoCustomerEmail, devserver.DemoCustomerPassword, profile.RoleCustomer)
	require.NoError(t, err)
	first.Wait()

	require.Equal(t, "Nordic Tools ApS", first.CustomerUser().CompanyName)
	require.Equal(t, profile.RoleCustomer, first.State().PrimaryRole)

	t.Run("restart restores both sessions", func(t *testing.T) {
		restarted := liveController(t, store, ts.URL, "/customer/orders")
		restarted.Initialize(ctx)
		restarted.Wait()

		require.True(t, restarted.IsAdminAuthenticated())
		require.True(t, restarted.IsCustomerAuthenticated())
		require.Equal(t, profile.RoleCustomer, restarted.State().PrimaryRole)
		require.True(t, restarted.CustomerUser().Complete())

		restarted.RefreshUser(ctx)
		require.True(t, restarted.IsCustomerAuthenticated())
	})

	t.Run("logout falls back to the other role", func(t *testing.T) {
		restarted := liveController(t, store, ts.URL, "/")
		restarted.Initialize(ctx)

		require.NoError(t, restarted.Logout(ctx, profile.RoleCustomer))
		require.Equal(t, profile.RoleAdmin, restarted.State().PrimaryRole)
		require.Equal(t, devserver.DemoAdminEmail, restarted.User().EmailAddress())

		pair, err := store.Tokens(profile.RoleCustomer)
		require.NoError(t, err)
		require.Nil(t, pair)
	})

	t.Run("expired access token is refreshed in the background", func(t *testing.T) {
		shortLived, err := devserver.New("integration", devserver.WithLogger(zerolog.Nop()), devserver.WithAccessTokenExpiry(time.Minute))
		require.NoError(t, err)
		require.NoError(t, shortLived.SeedDemoAccounts())
		short := httptest.NewServer(shortLived.Handler())
		defer short.Close()

		shortStore := memstore.New()
		c := liveController(t, shortStore, short.URL, "/admin")
		c.Initialize(ctx)
		_, err = c.Login(ctx, devserver.DemoAdminEmail, devserver.DemoAdminPassword, profile.RoleAdmin)
		require.NoError(t, err)
		before, err := shortStore.Tokens(profile.RoleAdmin)
		require.NoError(t, err)

		restarted := liveController(t, shortStore, short.URL, "/admin")
		restarted.Initialize(ctx)
		restarted.Wait()

		after, err := shortStore.Tokens(profile.RoleAdmin)
		require.NoError(t, err)
		require.NotEqual(t, before.RefreshToken, after.RefreshToken)
		require.True(t, restarted.IsAdminAuthenticated())
	})
}
