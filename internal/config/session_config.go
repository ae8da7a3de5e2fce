package config

import (
	"time"

	"github.com/jrsteele09/storefront-session/internal/utils"
)

type SessionConfig interface {
	GetNearExpiryThreshold() time.Duration
	GetGuardPeriod() time.Duration
	GetAdminPathMarkers() []string
	GetCustomerPathMarkers() []string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetNearExpiryThreshold is the remaining lifetime below which a token is refreshed proactively
func (Session) GetNearExpiryThreshold() time.Duration {
	return time.Duration(GetEnvInt("NEAR_EXPIRY_SECONDS", 300)) * time.Second
}

func (Session) GetGuardPeriod() time.Duration {
	return time.Duration(GetEnvInt("GUARD_PERIOD_SECONDS", 60)) * time.Second
}

func (Session) GetAdminPathMarkers() []string {
	return utils.SplitList(GetEnv("ADMIN_PATH_MARKERS", "/admin"))
}

func (Session) GetCustomerPathMarkers() []string {
	return utils.SplitList(GetEnv("CUSTOMER_PATH_MARKERS", "/customer"))
}
