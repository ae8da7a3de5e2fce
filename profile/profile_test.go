package profile_test

import (
	"testing"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := profile.ParseRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, profile.RoleAdmin, r)

	_, err = profile.ParseRole("guest")
	require.ErrorIs(t, err, errors.ErrInvalidRole)
}

func TestRoleOther(t *testing.T) {
	require.Equal(t, profile.RoleCustomer, profile.RoleAdmin.Other())
	require.Equal(t, profile.RoleAdmin, profile.RoleCustomer.Other())
	require.Equal(t, profile.Role(""), profile.Role("x").Other())
}

func TestCustomerProfileComplete(t *testing.T) {
	complete := profile.CustomerProfile{CompanyName: "Nordic Tools ApS", ContactName: "Mette", Email: "mette@nordic.dk"}
	require.True(t, complete.Complete())

	t.Run("missing company name", func(t *testing.T) {
		p := complete
		p.CompanyName = ""
		require.False(t, p.Complete())
	})

	t.Run("blank contact name", func(t *testing.T) {
		p := complete
		p.ContactName = "   "
		require.False(t, p.Complete())
	})

	t.Run("missing email", func(t *testing.T) {
		p := complete
		p.Email = ""
		require.False(t, p.Complete())
	})

	t.Run("nil", func(t *testing.T) {
		var p *profile.CustomerProfile
		require.False(t, p.Complete())
	})
}

func TestIsNil(t *testing.T) {
	var admin *profile.AdminProfile
	require.True(t, profile.IsNil(nil))
	require.True(t, profile.IsNil(admin))
	require.False(t, profile.IsNil(&profile.CustomerProfile{}))
}
