package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "standard configuration",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable",
		},
		{
			name: "remote with ssl",
			config: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "admin",
				Password: "secret",
				DBName:   "production",
				SSLMode:  "require",
			},
			expected: "host=db.example.com port=5433 user=admin password=secret dbname=production sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: "Miss Pauling"
server:
  host: "127.0.0.1"
  port: 9000
  public_url: "https://auth.example.com"
database:
  host: "localhost"
  port: 5432
  user: "postgres"
  dbname: "misspauling"
  sslmode: "disable"
logging:
  level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Miss Pauling", cfg.App.Name)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address())
	assert.Equal(t, "https://auth.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

// Fields absent from the file fall back to usable defaults
func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: test\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 168, cfg.Auth.SessionExpiryHours)
	assert.Equal(t, 30, cfg.Auth.APISessionDays)
	assert.Equal(t, "https://discord.com/oauth2/authorize", cfg.Discord.OAuthURL)
	assert.Equal(t, "https://discord.com/api/oauth2/token", cfg.Discord.TokenURL)
	assert.Equal(t, "https://steamcommunity.com/openid/login", cfg.Steam.OpenIDURL)
	assert.Equal(t, 100, cfg.Server.RateLimit.Max)
	assert.Equal(t, 60, cfg.Server.RateLimit.Expiration)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
