package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 10, cfg.Game.BaseAttribute)
	assert.Equal(t, 5, cfg.Game.BonusPoints)
	assert.Equal(t, 600, cfg.Game.FullRegenTimeS)
	assert.Equal(t, 300, cfg.Game.RankingRefreshS)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
	assert.Equal(t, 100.0, cfg.Security.RateLimitRPS)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8888
  debug: true
database:
  mode: mysql
  mysql_dsn: "user:pass@tcp(localhost:3306)/game"
game:
  bonus_points: 10
  full_regen_time_s: 1200
security:
  jwt_secret: supersecret
  admin_ips:
    - 10.0.0.1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "mysql", cfg.Database.Mode)
	assert.Equal(t, 10, cfg.Game.BonusPoints)
	assert.Equal(t, 1200, cfg.Game.FullRegenTimeS)
	assert.Equal(t, "supersecret", cfg.Security.JWTSecret)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Security.AdminIPs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
