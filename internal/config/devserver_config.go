package config

import "time"

type DevServerConfig interface {
	GetDevServerAddr() string
	GetDevServerSecret() string
	GetDevAccessTokenExpiry() time.Duration
	GetDevRefreshTokenExpiry() time.Duration
}

type DevServer struct{}

var _ DevServerConfig = DevServer{}

func (DevServer) GetDevServerAddr() string {
	return GetEnv("DEV_SERVER_ADDR", ":8080")
}

func (DevServer) GetDevServerSecret() string {
	return GetEnv("DEV_SERVER_SECRET", "storefront-dev-secret")
}

func (DevServer) GetDevAccessTokenExpiry() time.Duration {
	return time.Duration(GetEnvInt("DEV_ACCESS_TOKEN_MINUTES", 15)) * time.Minute
}

func (DevServer) GetDevRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}
