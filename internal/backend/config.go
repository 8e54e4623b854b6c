package backend

import (
	"fmt"

	"ezfin/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	identityType := IdentityType(appConfig.IdentityBackend)
	if identityType == "" {
		identityType = MemoryIdentity
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		DatabaseURL:     appConfig.DatabaseURL,
		MaxConns:        appConfig.DBMaxConns,
		MaxConnIdleTime: appConfig.DBMaxConnIdleTime,

		Identity:       identityType,
		ClerkAPIURL:    appConfig.ClerkAPIURL,
		ClerkSecretKey: appConfig.ClerkSecretKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}

	if c.Identity != "" && !c.Identity.IsValid() {
		return fmt.Errorf("invalid identity backend: %s", c.Identity)
	}
	if c.Identity == ClerkIdentity && c.ClerkSecretKey == "" {
		return fmt.Errorf("Clerk secret key is required for clerk identity backend")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
