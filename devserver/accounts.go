package devserver

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var ErrAccountNotFound = errors.New("account not found")

// Account is a storefront login. Exactly one of Admin and Customer is set,
// matching Role.
type Account struct {
	ID           string
	Role         profile.Role
	Email        string
	PasswordHash string // never serialized
	Blocked      bool
	LastLogin    time.Time

	Admin    *profile.AdminProfile
	Customer *profile.CustomerProfile
}

// LoginUser is the reduced profile returned by the login routes. Customers only
// get their contact details there; the billing identity comes from the profile route.
func (a *Account) LoginUser() profile.Profile {
	if a.Role == profile.RoleAdmin {
		return &profile.AdminProfile{ID: a.Admin.ID, Name: a.Admin.Name, Email: a.Admin.Email}
	}
	return &profile.CustomerProfile{ID: a.Customer.ID, ContactName: a.Customer.ContactName, Email: a.Customer.Email}
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type AccountRepo interface {
	Upsert(account *Account) error
	GetByEmail(role profile.Role, email string) (*Account, error)
	GetByID(id string) (*Account, error)
	SetLastLogin(id string, at time.Time) error
}

var _ AccountRepo = (*memAccountRepo)(nil)

type memAccountRepo struct {
	accounts map[string]*Account
	emailIDs map[string]string // role/email to account id
	lock     sync.RWMutex
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		accounts: make(map[string]*Account),
		emailIDs: make(map[string]string),
	}
}

func emailKey(role profile.Role, email string) string {
	return role.String() + "/" + strings.ToLower(strings.TrimSpace(email))
}

func (r *memAccountRepo) Upsert(account *Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	r.accounts[account.ID] = account
	r.emailIDs[emailKey(account.Role, account.Email)] = account.ID
	return nil
}

func (r *memAccountRepo) GetByEmail(role profile.Role, email string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emailIDs[emailKey(role, email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return r.accounts[id], nil
}

func (r *memAccountRepo) GetByID(id string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (r *memAccountRepo) SetLastLogin(id string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.LastLogin = at
	return nil
}
