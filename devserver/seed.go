package devserver

import (
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/pkg/errors"
)

// Demo logins created by SeedDemoAccounts
const (
	DemoAdminEmail       = "admin@storefront.dk"
	DemoAdminPassword    = "Admin1234"
	DemoCustomerEmail    = "indkob@nordictools.dk"
	DemoCustomerPassword = "Customer1234"
)

// SeedDemoAccounts registers one admin and one customer login.
func (s *Server) SeedDemoAccounts() error {
	admin := &profile.AdminProfile{
		ID:      "admin-1",
		Name:    "Storefront Admin",
		Email:   DemoAdminEmail,
		Picture: "https://www.gravatar.com/avatar/00000000000000000000000000000000",
	}
	if _, err := s.AddAccount(admin, DemoAdminPassword); err != nil {
		return errors.Wrap(err, "seeding admin")
	}

	customer := &profile.CustomerProfile{
		ID:          "customer-1",
		CompanyName: "Nordic Tools ApS",
		ContactName: "Mette Jensen",
		Email:       DemoCustomerEmail,
		Phone:       "+45 70 20 30 40",
		VATNumber:   "DK12345678",
		Billing: profile.BillingAddress{
			Street:     "Havnegade 1",
			PostalCode: "1058",
			City:       "København K",
			Country:    "DK",
		},
		DiscountGroup: "wholesale",
	}
	if _, err := s.AddAccount(customer, DemoCustomerPassword); err != nil {
		return errors.Wrap(err, "seeding customer")
	}

	s.logger.Info().Str("admin", DemoAdminEmail).Str("customer", DemoCustomerEmail).Msg("demo accounts seeded")
	return nil
}
