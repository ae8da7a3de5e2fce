package identityfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
)

// Endpoint names used by Calls
const (
	EndpointLoginCustomer   = "loginCustomer"
	EndpointLoginAdmin      = "loginAdmin"
	EndpointRefresh         = "refresh"
	EndpointAdminProfile    = "adminProfile"
	EndpointCustomerProfile = "customerProfile"
	EndpointLogout          = "logout"
)

var _ identity.Service = (*FakeIdentityService)(nil)

// FakeIdentityService is a scripted identity.Service. Each endpoint delegates to its
// func field when set; unset endpoints fail with errors.ErrUnsupported, except
// Logout which succeeds. Every call is counted before delegating.
type FakeIdentityService struct {
	LoginCustomerFunc   func(ctx context.Context, email, password string) (*identity.LoginResult, error)
	LoginAdminFunc      func(ctx context.Context, email, password string) (*identity.LoginResult, error)
	RefreshFunc         func(ctx context.Context, role profile.Role) (*identity.RefreshResult, error)
	AdminProfileFunc    func(ctx context.Context) (*profile.AdminProfile, error)
	CustomerProfileFunc func(ctx context.Context) (*profile.CustomerProfile, error)
	LogoutFunc          func(ctx context.Context, role profile.Role) error

	calls map[string]int
	lock  sync.Mutex
}

func NewFakeIdentityService() *FakeIdentityService {
	return &FakeIdentityService{calls: make(map[string]int)}
}

// Calls returns how many times endpoint was invoked
func (f *FakeIdentityService) Calls(endpoint string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[endpoint]
}

func (f *FakeIdentityService) record(endpoint string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[endpoint]++
}

func (f *FakeIdentityService) LoginCustomer(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	f.record(EndpointLoginCustomer)
	if f.LoginCustomerFunc == nil {
		return nil, errors.ErrUnsupported
	}
	return f.LoginCustomerFunc(ctx, email, password)
}

func (f *FakeIdentityService) LoginAdmin(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	f.record(EndpointLoginAdmin)
	if f.LoginAdminFunc == nil {
		return nil, errors.ErrUnsupported
	}
	return f.LoginAdminFunc(ctx, email, password)
}

func (f *FakeIdentityService) Refresh(ctx context.Context, role profile.Role) (*identity.RefreshResult, error) {
	f.record(EndpointRefresh)
	if f.RefreshFunc == nil {
		return nil, errors.ErrUnsupported
	}
	return f.RefreshFunc(ctx, role)
}

func (f *FakeIdentityService) AdminProfile(ctx context.Context) (*profile.AdminProfile, error) {
	f.record(EndpointAdminProfile)
	if f.AdminProfileFunc == nil {
		return nil, errors.ErrUnsupported
	}
	return f.AdminProfileFunc(ctx)
}

func (f *FakeIdentityService) CustomerProfile(ctx context.Context) (*profile.CustomerProfile, error) {
	f.record(EndpointCustomerProfile)
	if f.CustomerProfileFunc == nil {
		return nil, errors.ErrUnsupported
	}
	return f.CustomerProfileFunc(ctx)
}

func (f *FakeIdentityService) Logout(ctx context.Context, role profile.Role) error {
	f.record(EndpointLogout)
	if f.LogoutFunc == nil {
		return nil
	}
	return f.LogoutFunc(ctx, role)
}
