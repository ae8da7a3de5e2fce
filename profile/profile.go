package profile

import "strings"

// Profile is the role-tagged user record. The set of implementations is closed:
// consumers type-switch over *AdminProfile and *CustomerProfile.
type Profile interface {
	Role() Role
	DisplayName() string
	EmailAddress() string
	isProfile()
}

type AdminProfile struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func (*AdminProfile) Role() Role             { return RoleAdmin }
func (a *AdminProfile) DisplayName() string  { return a.Name }
func (a *AdminProfile) EmailAddress() string { return a.Email }
func (*AdminProfile) isProfile()             {}

// BillingAddress is the invoicing address registered for a customer company.
type BillingAddress struct {
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
}

type CustomerProfile struct {
	ID            string         `json:"id,omitempty"`
	CompanyName   string         `json:"companyName,omitempty"`
	ContactName   string         `json:"contactName,omitempty"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	VATNumber     string         `json:"vatNumber,omitempty"` // CVR for Danish companies
	Billing       BillingAddress `json:"billing,omitempty"`
	DiscountGroup string         `json:"discountGroup,omitempty"`
}

func (*CustomerProfile) Role() Role             { return RoleCustomer }
func (c *CustomerProfile) DisplayName() string  { return c.ContactName }
func (c *CustomerProfile) EmailAddress() string { return c.Email }
func (*CustomerProfile) isProfile()             {}

// Complete reports whether the profile carries contact name, email and company name.
// Incomplete profiles must never replace a known-good cached profile.
func (c *CustomerProfile) Complete() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.ContactName) != "" &&
		strings.TrimSpace(c.Email) != "" &&
		strings.TrimSpace(c.CompanyName) != ""
}

// IsNil reports whether p is nil or a typed nil pointer.
func IsNil(p Profile) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *AdminProfile:
		return v == nil
	case *CustomerProfile:
		return v == nil
	}
	return false
}
