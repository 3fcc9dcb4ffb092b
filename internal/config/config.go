// Package config holds environment-driven configuration.
package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	OfflineDBPath  string
	StartupOffline bool
}

// Load reads configuration from the environment (an optional .env file is
// loaded first).
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("OFFLINE_DB_PATH", "bentamate-offline.db")
	v.SetDefault("STARTUP_OFFLINE", false)
	v.AutomaticEnv()

	cfg := Config{
		Addr:           v.GetString("ADDR"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		OfflineDBPath:  v.GetString("OFFLINE_DB_PATH"),
		StartupOffline: v.GetBool("STARTUP_OFFLINE"),
	}
	return cfg, nil
}
