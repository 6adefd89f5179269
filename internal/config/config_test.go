package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "X-Owner-ID", cfg.API.OwnerHeader)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, FallbackNotFound, cfg.Store.FallbackPolicy)
	assert.Equal(t, 7*24*time.Hour, cfg.Store.RecentWindow)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "users/u1/resumes", cfg.Store.CollectionFor("u1"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "secret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/r.db")
	t.Setenv("STORE_FALLBACK_POLICY", "any")
	t.Setenv("STORE_RECENT_WINDOW", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/r.db", cfg.Database.SQLitePath)
	assert.Equal(t, FallbackAny, cfg.Store.FallbackPolicy)
	assert.Equal(t, 48*time.Hour, cfg.Store.RecentWindow)
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "secret")
	t.Setenv("STORE_FALLBACK_POLICY", "sometimes")

	_, err := Load()
	assert.ErrorContains(t, err, "fallback policy")
}

func TestLoad_RequiresMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "minio access key id is required")
}

func TestValidateDatabase(t *testing.T) {
	assert.NoError(t, validateDatabase(DatabaseConfig{Driver: DriverSQLite, SQLitePath: "x.db"}))
	assert.ErrorContains(t, validateDatabase(DatabaseConfig{Driver: "mysql"}), "unsupported database driver")
	assert.ErrorContains(t, validateDatabase(DatabaseConfig{Driver: DriverPostgres}), "database host is required")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}

func TestLoad_AssistEndpoint(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Assist.Enabled())

	t.Setenv("ASSIST_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("ASSIST_MODEL", "llama3")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Assist.Enabled())
	assert.Equal(t, "llama3", cfg.Assist.Model)
	assert.Equal(t, 30*time.Second, cfg.Assist.Timeout)
}

func TestAPIConfig_Origins(t *testing.T) {
	assert.Nil(t, APIConfig{}.Origins())
	assert.Equal(t,
		[]string{"https://a.example", "https://b.example"},
		APIConfig{AllowedOrigins: " https://a.example,,https://b.example "}.Origins(),
	)
}
