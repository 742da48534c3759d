package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/equipment.json", cfg.Equipment.DataPath)
	assert.Equal(t, "America/Mexico_City", cfg.App.Timezone)
	assert.Equal(t, 8*time.Hour, cfg.JWT.AccessTokenExpire)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Google.Enabled())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	yaml := `
server:
  port: 9090
app:
  timezone: UTC
  super_admin_email: jefe@planta.mx
equipment:
  data_path: /srv/equipos.json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "jefe@planta.mx", cfg.App.SuperAdminEmail)
	assert.Equal(t, "/srv/equipos.json", cfg.Equipment.DataPath)
	assert.Equal(t, "s3cr3t", cfg.JWT.Secret)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	cfg := Default()
	cfg.App.Timezone = "Marte/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.JWT.Secret = ""
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	cfg := Default().Database
	cfg.Password = "pw"
	assert.Equal(t, "host=127.0.0.1 port=5432 user=mtto password=pw dbname=reportes_mtto sslmode=disable TimeZone=UTC", cfg.DSN())
}
