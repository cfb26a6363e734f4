package testutil

import (
	"testing"

	"github.com/arcadia-games/webrpg/server/cache"
	"github.com/arcadia-games/webrpg/server/config"
	dbadapter "github.com/arcadia-games/webrpg/server/db"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeSQLiteMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{}) // empty RedisAddr → LocalCache
	require.NoError(t, err, "SetupTestCache: NewCache")
	return c
}

// GameConfig returns the default game tuning used across tests.
func GameConfig() config.GameConfig {
	return config.GameConfig{
		BaseAttribute:  10,
		BonusPoints:    5,
		FullRegenTimeS: 600,
	}
}
