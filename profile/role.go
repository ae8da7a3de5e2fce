package profile

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/storefront-session/internal/errors"
)

// Role identifies one of the two independent identity kinds.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Roles lists every role in reconciliation order: admin before customer.
var Roles = []Role{RoleAdmin, RoleCustomer}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// Other returns the opposite role. Other of an invalid role is empty.
func (r Role) Other() Role {
	switch r {
	case RoleAdmin:
		return RoleCustomer
	case RoleCustomer:
		return RoleAdmin
	}
	return ""
}

func (r Role) String() string {
	return string(r)
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%q: %w", s, errors.ErrInvalidRole)
	}
	return r, nil
}
