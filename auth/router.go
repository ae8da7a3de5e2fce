package auth

import (
	"strings"

	"github.com/jrsteele09/storefront-session/profile"
)

// Router reports the application's current navigation path.
type Router interface {
	CurrentPath() string
}

// StaticPath is a Router fixed to one path.
type StaticPath string

func (p StaticPath) CurrentPath() string {
	return string(p)
}

// PathMarkers are the path fragments that identify the admin and customer areas.
type PathMarkers struct {
	Admin    []string
	Customer []string
}

func DefaultPathMarkers() PathMarkers {
	return PathMarkers{
		Admin:    []string{"/admin"},
		Customer: []string{"/customer"},
	}
}

// ResolvePrimary picks the primary role for path given which sessions are valid.
// An admin-area path selects admin, a customer-area path selects customer, and
// any other path prefers admin over customer. Empty means no primary identity.
func (m PathMarkers) ResolvePrimary(path string, adminValid, customerValid bool) profile.Role {
	switch {
	case containsAny(path, m.Admin):
		if adminValid {
			return profile.RoleAdmin
		}
		return ""
	case containsAny(path, m.Customer):
		if customerValid {
			return profile.RoleCustomer
		}
		return ""
	case adminValid:
		return profile.RoleAdmin
	case customerValid:
		return profile.RoleCustomer
	}
	return ""
}

func containsAny(path string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(path, marker) {
			return true
		}
	}
	return false
}
