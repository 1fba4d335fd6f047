package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

// CurrentCacheVersion is bumped whenever the stored vector format changes.
const CurrentCacheVersion = 1

var (
	bucketMeta      = []byte("meta")
	keyCacheVersion = []byte("cache_version")
)

// BoltCache persists embeddings in BoltDB, one bucket per model, keyed by a
// hash of the cleaned text.
type BoltCache struct {
	db *bbolt.DB
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

// NewBoltCache opens (or creates) the cache file. A cache written by an older
// format version is cleared.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}

		var version int
		if data := meta.Get(keyCacheVersion); data != nil {
			if err := json.Unmarshal(data, &version); err != nil {
				version = 0
			}
		}
		if version == CurrentCacheVersion {
			return nil
		}

		var stale [][]byte
		if err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if string(name) != string(bucketMeta) {
				stale = append(stale, append([]byte(nil), name...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, name := range stale {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}

		data, err := json.Marshal(CurrentCacheVersion)
		if err != nil {
			return err
		}
		return meta.Put(keyCacheVersion, data)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCache{db: db}, nil
}

// Get returns cached vectors keyed by their position in texts.
func (c *BoltCache) Get(model string, texts []string) (map[int][]float32, error) {
	hits := make(map[int][]float32)
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(modelBucket(model))
		if b == nil {
			return nil
		}
		for i, text := range texts {
			data := b.Get(textKey(text))
			if data == nil {
				continue
			}
			var stored storedVector
			if err := json.Unmarshal(data, &stored); err != nil {
				continue // Skip corrupted entries
			}
			hits[i] = stored.Vector
		}
		return nil
	})
	return hits, err
}

// Put stores vectors[i] for texts[i].
func (c *BoltCache) Put(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("cache put: %d texts but %d vectors", len(texts), len(vectors))
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(modelBucket(model))
		if err != nil {
			return err
		}
		for i, text := range texts {
			data, err := json.Marshal(storedVector{Vector: vectors[i]})
			if err != nil {
				return err
			}
			if err := b.Put(textKey(text), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of vectors cached for model.
func (c *BoltCache) Count(model string) (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(modelBucket(model)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

func modelBucket(model string) []byte {
	return []byte("model:" + model)
}

func textKey(text string) []byte {
	hash := sha256.Sum256([]byte(text))
	return []byte(hex.EncodeToString(hash[:16]))
}

// MemoryCache keeps embeddings for the life of the process.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		vectors: make(map[string][]float32),
	}
}

func (c *MemoryCache) Get(model string, texts []string) (map[int][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hits := make(map[int][]float32)
	for i, text := range texts {
		if v, ok := c.vectors[model+"\x00"+text]; ok {
			hits[i] = v
		}
	}
	return hits, nil
}

func (c *MemoryCache) Put(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("cache put: %d texts but %d vectors", len(texts), len(vectors))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, text := range texts {
		c.vectors[model+"\x00"+text] = vectors[i]
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

func (c *MemoryCache) Close() error {
	return nil
}
