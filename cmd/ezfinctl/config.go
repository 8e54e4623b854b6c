package main

import (
	"strings"

	"github.com/spf13/viper"

	"ezfin/internal/config"
)

const envPrefix = "EZFIN"

// bindEnv maps nested keys to EZFIN_* variables, e.g. storage.sqlite_path to
// EZFIN_STORAGE_SQLITE_PATH.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// buildConfig starts from the environment used by the servers and lets
// viper override the storage and Google settings.
func buildConfig(v *viper.Viper) *config.Config {
	cfg := config.Load()

	overrides := []struct {
		key string
		dst *string
	}{
		{"storage.backend", &cfg.DataBackend},
		{"storage.sqlite_path", &cfg.SQLiteDBPath},
		{"storage.database_url", &cfg.DatabaseURL},
		{"google.oauth_client_file", &cfg.GoogleOAuthClientFile},
		{"google.oauth_client_json", &cfg.GoogleOAuthClientJSON},
		{"google.oauth_token_file", &cfg.GoogleOAuthTokenFile},
	}
	for _, o := range overrides {
		if s := strings.TrimSpace(v.GetString(o.key)); s != "" {
			*o.dst = s
		}
	}
	if n := v.GetInt("storage.max_conns"); n > 0 {
		cfg.DBMaxConns = n
	}
	return cfg
}
