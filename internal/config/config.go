package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Discord  DiscordConfig  `yaml:"discord"`
	Steam    SteamConfig    `yaml:"steam"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name string `yaml:"name"`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	Max        int `yaml:"max"`
	Expiration int `yaml:"expiration"` // seconds
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	PublicURL      string          `yaml:"public_url"`   // externally reachable base URL, also the OpenID realm
	FrontendURL    string          `yaml:"frontend_url"` // where browser flows land after auth
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig holds auth-specific configuration
type AuthConfig struct {
	SessionExpiryHours int `yaml:"session_expiry_hours"` // web front door cookie sessions
	APISessionDays     int `yaml:"api_session_days"`     // sessions issued for bearer flows
}

// DiscordConfig holds Discord OAuth2 endpoints and client identity.
// The client secret comes from the environment, never from the file.
type DiscordConfig struct {
	ApplicationID string `yaml:"application_id"`
	CallbackURL   string `yaml:"callback_url"`
	OAuthURL      string `yaml:"oauth_url"`
	TokenURL      string `yaml:"token_url"`
	APIURL        string `yaml:"api_url"`
}

// SteamConfig holds Steam OpenID endpoints
type SteamConfig struct {
	OpenIDURL   string `yaml:"openid_url"`
	CallbackURL string `yaml:"callback_url"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.SessionExpiryHours == 0 {
		c.Auth.SessionExpiryHours = 168 // 7 days
	}
	if c.Auth.APISessionDays == 0 {
		c.Auth.APISessionDays = 30
	}
	if c.Discord.OAuthURL == "" {
		c.Discord.OAuthURL = "https://discord.com/oauth2/authorize"
	}
	if c.Discord.TokenURL == "" {
		c.Discord.TokenURL = "https://discord.com/api/oauth2/token"
	}
	if c.Discord.APIURL == "" {
		c.Discord.APIURL = "https://discord.com/api"
	}
	if c.Steam.OpenIDURL == "" {
		c.Steam.OpenIDURL = "https://steamcommunity.com/openid/login"
	}
	if c.Server.RateLimit.Max == 0 {
		c.Server.RateLimit.Max = 100
	}
	if c.Server.RateLimit.Expiration == 0 {
		c.Server.RateLimit.Expiration = 60
	}
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.DBName,
		d.SSLMode,
	)
}
