package auth_test

import (
	"testing"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/stretchr/testify/require"
)

func TestPathMarkers_ResolvePrimary(t *testing.T) {
	markers := auth.DefaultPathMarkers()

	cases := []struct {
		path          string
		adminValid    bool
		customerValid bool
		want          profile.Role
	}{
		{"/admin", false, true, ""},
		{"/admin/products", true, true, profile.RoleAdmin},
		{"/customer", true, false, ""},
		{"/customer/cart", true, true, profile.RoleCustomer},
		{"/", true, true, profile.RoleAdmin},
		{"/", false, true, profile.RoleCustomer},
		{"/catalog/tools", false, false, ""},
		{"/admin/customer/42", true, true, profile.RoleAdmin},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, markers.ResolvePrimary(tc.path, tc.adminValid, tc.customerValid),
			"path=%s admin=%v customer=%v", tc.path, tc.adminValid, tc.customerValid)
	}
}

func TestPathMarkers_Custom(t *testing.T) {
	markers := auth.PathMarkers{Admin: []string{"/backoffice", ""}, Customer: []string{"/account"}}

	require.Equal(t, profile.RoleAdmin, markers.ResolvePrimary("/backoffice/orders", true, true))
	require.Equal(t, profile.RoleCustomer, markers.ResolvePrimary("/account", true, true))
	require.Equal(t, profile.RoleAdmin, markers.ResolvePrimary("/admin", true, true))
	require.Equal(t, "/shop", auth.StaticPath("/shop").CurrentPath())
}
