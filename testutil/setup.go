package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/config"
	dbadapter "github.com/kasuganosora/skyquest/db"
	"github.com/kasuganosora/skyquest/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// Each call returns an isolated database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: dbadapter.MemoryDSN,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates an in-process Cache and PubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	return newCache(t, cache.Config{})
}

// SetupRedisCache starts a miniredis server and returns a Cache and PubSub
// connected to it, plus the server for fast-forwarding TTLs.
func SetupRedisCache(t *testing.T) (cache.Cache, cache.PubSub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, ps := newCache(t, cache.Config{RedisAddr: mr.Addr()})
	return c, ps, mr
}

func newCache(t *testing.T, cfg cache.Config) (cache.Cache, cache.PubSub) {
	t.Helper()
	c, err := cache.New(cfg)
	require.NoError(t, err, "SetupTestCache: New")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}
