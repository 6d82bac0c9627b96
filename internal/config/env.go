package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables. Secrets live here rather than
// in the YAML file so the file can be committed.
type Environment struct {
	Environment         EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath          string          `env:"CONFIG_PATH"`
	SecretKey           string          `env:"MISS_PAULING_SECRET_KEY"`
	DiscordClientSecret string          `env:"DISCORD_CLIENT_SECRET"`
	SteamAPIKey         string          `env:"STEAM_API_KEY"`
}

// LoadEnv loads the environment variables, reading a .env file first if present
func LoadEnv() *Environment {
	_ = godotenv.Load()

	envStr := strings.ToLower(strings.TrimSpace(getEnv("ENVIRONMENT", string(EnvironmentDevelopment))))
	envType := EnvironmentType(envStr)
	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment:         envType,
		ConfigPath:          getEnv("CONFIG_PATH", "config.yaml"),
		SecretKey:           getEnv("MISS_PAULING_SECRET_KEY", ""),
		DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
		SteamAPIKey:         getEnv("STEAM_API_KEY", ""),
	}
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
