package config

import "time"

type IdentityConfig interface {
	GetStorefrontAPIURL() string
	GetIdentityTimeout() time.Duration
}

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetStorefrontAPIURL returns the base URL of the storefront identity API (e.g., "https://shop.example.dk")
func (Identity) GetStorefrontAPIURL() string {
	return GetEnv("STOREFRONT_API_URL", "http://localhost:8080")
}

func (Identity) GetIdentityTimeout() time.Duration {
	return time.Duration(GetEnvInt("IDENTITY_TIMEOUT_SECONDS", 10)) * time.Second
}

type OIDCConfig interface {
	GetOIDCIssuerURL() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

// GetOIDCIssuerURL enables OIDC federated admin logins when set
func (OIDC) GetOIDCIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "")
}

func (OIDC) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "storefront-admin")
}

func (OIDC) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}
