package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"museumtopics/config"
	"museumtopics/internal/domain"
	"museumtopics/internal/port"
)

// CachedEmbedder serves repeated texts from a cache and embeds only misses.
type CachedEmbedder struct {
	inner port.Embedder
	cache port.EmbeddingCache
}

func NewCachedEmbedder(inner port.Embedder, cache port.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := e.inner.ModelName()

	hits, err := e.cache.Get(model, texts)
	if err != nil {
		slog.Warn("embedding cache read failed", "model", model, "error", err)
		hits = nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := hits[i]; ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, domain.ModelUnavailable("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
	}
	if err := e.cache.Put(model, missTexts, vectors); err != nil {
		slog.Warn("embedding cache write failed", "model", model, "error", err)
	}
	return out, nil
}

func (e *CachedEmbedder) Ping(ctx context.Context) error {
	if p, ok := e.inner.(port.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

// New builds the embedder named by cfg.Provider. Any failure is reported as
// domain.ErrModelUnavailable.
func New(cfg config.EmbeddingConfig, seed int64) (port.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		emb, err := NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(cfg.Dimension), nil
	case "jina":
		emb, err := NewJinaEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(cfg.Dimension), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Timeout).WithDimension(cfg.Dimension), nil
	case "compatible":
		if cfg.BaseURL == "" {
			return nil, domain.ModelUnavailable("provider %q needs embedding.base_url", cfg.Provider)
		}
		emb, err := NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(cfg.Dimension), nil
	case "hashing":
		return NewHashingEmbedder(cfg.Dimension, seed), nil
	default:
		return nil, domain.ModelUnavailable("unknown embedding provider %q", cfg.Provider)
	}
}

// Shared lazily builds one embedder (and its cache) for the whole process.
// The embedder is read-only once built, so concurrent runs share it freely.
type Shared struct {
	get   func() (port.Embedder, error)
	mu    sync.Mutex
	cache port.EmbeddingCache
}

// NewShared prepares, but does not build, the process embedder.
func NewShared(cfg *config.Config) *Shared {
	s := &Shared{}
	s.get = sync.OnceValues(func() (port.Embedder, error) {
		emb, err := New(cfg.Embedding, cfg.Pipeline.RandomSeed)
		if err != nil {
			return nil, err
		}
		if !cfg.Embedding.CacheEnabled {
			return emb, nil
		}

		var cache port.EmbeddingCache
		if cfg.Embedding.CachePath == "" {
			cache = NewMemoryCache()
		} else {
			if err := cfg.EnsureCacheDir(); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
			bc, err := NewBoltCache(cfg.Embedding.CachePath)
			if err != nil {
				slog.Warn("embedding cache unavailable, continuing without it", "path", cfg.Embedding.CachePath, "error", err)
				return emb, nil
			}
			cache = bc
		}
		s.mu.Lock()
		s.cache = cache
		s.mu.Unlock()
		return NewCachedEmbedder(emb, cache), nil
	})
	return s
}

// Get returns the process embedder, building it on first call. Pinging is
// left to the caller.
func (s *Shared) Get() (port.Embedder, error) {
	return s.get()
}

// Close releases the cache, if one was opened.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return nil
	}
	err := s.cache.Close()
	s.cache = nil
	return err
}
