package auth

import (
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/token"
)

// InitPhase tracks the one-shot startup reconciliation.
type InitPhase int

const (
	InitNotStarted InitPhase = iota
	InitInProgress
	InitDone
)

func (p InitPhase) String() string {
	switch p {
	case InitNotStarted:
		return "not_started"
	case InitInProgress:
		return "in_progress"
	case InitDone:
		return "done"
	}
	return "unknown"
}

// Session is the cached profile and credential pair of one role.
//
// ID is a generation stamp assigned whenever a session is created by login or by
// startup reconciliation. Asynchronous results carry the ID they were started for
// and are dropped when the role's session has since been replaced or cleared.
type Session struct {
	Role    profile.Role
	ID      string
	Profile profile.Profile
	Tokens  *token.Pair
}

// Present reports whether a profile is cached for the role.
func (s Session) Present() bool {
	return !profile.IsNil(s.Profile)
}

// Exists reports whether anything at all is held for the role.
func (s Session) Exists() bool {
	return s.ID != "" || s.Tokens != nil || s.Present()
}

// State is an immutable snapshot of the controller. Profiles and token pairs are
// shared with the controller and must be treated as read-only.
type State struct {
	Admin               Session
	Customer            Session
	PrimaryRole         profile.Role // empty when no identity is primary
	IsLoading           bool
	IsProfileRefreshing bool
}

func emptyState() State {
	return State{
		Admin:    Session{Role: profile.RoleAdmin},
		Customer: Session{Role: profile.RoleCustomer},
	}
}

// Session returns the session held for role.
func (s State) Session(role profile.Role) Session {
	if role == profile.RoleAdmin {
		return s.Admin
	}
	return s.Customer
}

// Primary returns the profile presented as the logged-in user. It is always the
// admin profile, the customer profile or nil.
func (s State) Primary() profile.Profile {
	switch s.PrimaryRole {
	case profile.RoleAdmin:
		return s.Admin.Profile
	case profile.RoleCustomer:
		return s.Customer.Profile
	}
	return nil
}

func (s *State) setSession(sess Session) {
	if sess.Role == profile.RoleAdmin {
		s.Admin = sess
		return
	}
	s.Customer = sess
}

// clearSession empties role and drops it as primary.
func (s *State) clearSession(role profile.Role) {
	s.setSession(Session{Role: role})
	if s.PrimaryRole == role {
		s.PrimaryRole = ""
	}
}
