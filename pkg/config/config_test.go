package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), nil, 0o644))
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "dorm_management", cfg.Database.Name)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.Equal(t, []string{"vanlanguni.vn", "vlu.edu.vn"}, cfg.Registration.AllowedEmailDomains)
	assert.Equal(t, 18, cfg.Registration.MinAge)
	assert.Equal(t, 30, cfg.Registration.MaxAge)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.Equal(t, []string{"image/jpeg", "image/png"}, cfg.Uploads.AllowedMIMEs)
	assert.True(t, cfg.Billing.Enabled)
	assert.Equal(t, 5, cfg.Billing.DueDay)
	assert.Equal(t, 5, cfg.Billing.ContractMonths)
	assert.Equal(t, 12*time.Hour, cfg.Billing.Interval)
	assert.True(t, cfg.Dashboard.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.False(t, cfg.Seed.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", EnvProduction)
	t.Setenv("BILLING_DUE_DAY", "10")
	t.Setenv("ENABLE_SEED_DATA", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://dorm.vlu.edu.vn, https://admin.vlu.edu.vn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 10, cfg.Billing.DueDay)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, []string{"https://dorm.vlu.edu.vn", "https://admin.vlu.edu.vn"}, cfg.CORS.AllowedOrigins)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("1m", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("garbage", time.Hour))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a ,b,"))
}
