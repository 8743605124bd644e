// Package storage persists runtime subsystem state as keyed JSON blobs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("storage: blob not found")

// Keys of the runtime blobs, relative to the configured prefix.
const (
	KeyMissionManager = "mission_manager"
	KeyWorldState     = "world_state"
	KeyCompanions     = "companions"
)

// BlobStore saves and loads opaque JSON documents by key.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// ---- cache backend ----

// CacheStore keeps blobs in a cache.Cache without expiry.
type CacheStore struct {
	c      cache.Cache
	prefix string
}

// NewCacheStore creates a CacheStore. prefix is prepended to every key.
func NewCacheStore(c cache.Cache, prefix string) *CacheStore {
	return &CacheStore{c: c, prefix: prefix}
}

func (s *CacheStore) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.Get(ctx, s.prefix+key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", key, err)
	}
	return []byte(v), nil
}

func (s *CacheStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.c.Set(ctx, s.prefix+key, string(data), 0); err != nil {
		return fmt.Errorf("storage: save %s: %w", key, err)
	}
	return nil
}

// ---- database backend ----

// DBStore keeps blobs in the save_blobs table.
type DBStore struct {
	db     *gorm.DB
	prefix string
}

// NewDBStore creates a DBStore. The save_blobs table must already be migrated.
func NewDBStore(db *gorm.DB, prefix string) *DBStore {
	return &DBStore{db: db, prefix: prefix}
}

func (s *DBStore) Load(ctx context.Context, key string) ([]byte, error) {
	var blob model.SaveBlob
	err := s.db.WithContext(ctx).Where("`key` = ?", s.prefix+key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", key, err)
	}
	return []byte(blob.Data), nil
}

// Save upserts the blob. The version column mirrors the document's top-level
// "version" field when present.
func (s *DBStore) Save(ctx context.Context, key string, data []byte) error {
	blob := model.SaveBlob{
		Key:     s.prefix + key,
		Version: versionOf(data),
		Data:    datatypes.JSON(data),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "data", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("storage: save %s: %w", key, err)
	}
	return nil
}

func versionOf(data []byte) int {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Version <= 0 {
		return 1
	}
	return head.Version
}

// ---- in-memory backend ----

// MemoryStore is a map-backed BlobStore with optional injected failures.
type MemoryStore struct {
	Blobs   map[string][]byte
	Saves   int
	FailErr error // returned by every Load and Save when set
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	if m.FailErr != nil {
		return nil, m.FailErr
	}
	b, ok := m.Blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	if m.FailErr != nil {
		return m.FailErr
	}
	m.Blobs[key] = append([]byte(nil), data...)
	m.Saves++
	return nil
}
