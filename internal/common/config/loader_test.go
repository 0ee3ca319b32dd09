package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: "lifecycle-service"
database:
  postgres:
    host: "localhost"
    database: "leaseflow"
    user: "app"
  redis:
    address: "localhost:6379"
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Lifecycle.MaxDraftAgeDays)
	assert.Equal(t, 3600000, cfg.Lifecycle.ExpirySweepInterval)
	assert.Equal(t, 4, cfg.Lifecycle.ExpiryConcurrency)
	assert.Equal(t, 256, cfg.Notifications.QueueSize)
	assert.Equal(t, 2, cfg.Notifications.Workers)
	assert.Equal(t, "us-east-1", cfg.Notifications.AWS.Region)
	assert.Equal(t, 300, cfg.Database.Redis.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":9102", cfg.Metrics.ListenAddress)
}

func TestLoadFromFile_MissingRequiredField(t *testing.T) {
	_, err := LoadFromFile(writeConfigFile(t, `
app:
  name: "lifecycle-service"
database:
  postgres:
    host: "localhost"
    database: "leaseflow"
    user: "app"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.redis.address")
}

func TestLoadFromFile_EmailRequiresFromAddress(t *testing.T) {
	_, err := LoadFromFile(writeConfigFile(t, minimalConfig+`
notifications:
  email:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from_email")
}

func TestLoadFromFile_CredentialFallbackFromEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "sekret")

	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "sekret", cfg.Database.Postgres.Password)
}

func TestGetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5432, Database: "leaseflow",
		User: "app", Password: "pw", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=leaseflow sslmode=disable",
		cfg.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Hour, GetDuration(3600000))
}
