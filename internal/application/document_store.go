package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/metrics"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

const (
	defaultCacheTTL          = 30 * time.Second
	defaultUpdateMaxAttempts = 5
	defaultRetryBaseDelay    = 25 * time.Millisecond
	defaultOperationTimeout  = 10 * time.Second
)

type cacheEntry struct {
	data      []byte
	version   string
	fetchedAt time.Time
}

// DocumentStore provides whole-document get/save/update over versioned object
// storage. Reads are served from an in-process TTL cache; updates bypass the
// cache and commit through conditional writes with a bounded, jittered retry
// loop so no concurrent update to the same key is silently lost.
//
// The store is a process-wide singleton shared by all request handlers. It does
// not interpret record-level semantics (ids, validation); it only guarantees
// whole-document atomicity.
type DocumentStore struct {
	logger        domain.Logger
	storage       domain.ObjectStorage
	invalidations domain.CacheInvalidationPublisher // optional, may be nil
	origin        string                            // pod id carried in invalidation messages

	cacheTTL    time.Duration
	maxAttempts int
	retryBase   time.Duration
	opTimeout   time.Duration // deadline applied to each storage round trip

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewDocumentStore creates a DocumentStore configured from the store section of
// the application configuration.
func NewDocumentStore(logger domain.Logger, cfgProvider config.Provider, storage domain.ObjectStorage, invalidations domain.CacheInvalidationPublisher) *DocumentStore {
	if logger == nil {
		panic("logger is nil in NewDocumentStore")
	}
	if storage == nil {
		panic("object storage is nil in NewDocumentStore")
	}

	cacheTTL := defaultCacheTTL
	maxAttempts := defaultUpdateMaxAttempts
	retryBase := defaultRetryBaseDelay
	opTimeout := defaultOperationTimeout
	origin := ""
	if cfgProvider != nil && cfgProvider.Get() != nil {
		cfg := cfgProvider.Get()
		if cfg.Store.CacheTTLSeconds > 0 {
			cacheTTL = time.Duration(cfg.Store.CacheTTLSeconds) * time.Second
		}
		if cfg.Store.UpdateMaxAttempts > 0 {
			maxAttempts = cfg.Store.UpdateMaxAttempts
		}
		if cfg.Store.UpdateRetryBaseMs > 0 {
			retryBase = time.Duration(cfg.Store.UpdateRetryBaseMs) * time.Millisecond
		}
		if cfg.Store.OperationTimeoutSecs > 0 {
			opTimeout = time.Duration(cfg.Store.OperationTimeoutSecs) * time.Second
		}
		origin = cfg.Server.PodID
	}

	return &DocumentStore{
		logger:        logger,
		storage:       storage,
		invalidations: invalidations,
		origin:        origin,
		cacheTTL:      cacheTTL,
		maxAttempts:   maxAttempts,
		retryBase:     retryBase,
		opTimeout:     opTimeout,
		cache:         make(map[string]cacheEntry),
	}
}

// GetRaw fetches the raw document bytes for a key. A cache hit within the TTL is
// served without a storage round trip. Returns domain.ErrDocumentNotFound if the
// key has never been written.
func (s *DocumentStore) GetRaw(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < s.cacheTTL {
		metrics.IncrementDocumentRead(key, "cache")
		s.logger.Debug(ctx, "Document cache hit", "key", key, "version", entry.version)
		return entry.data, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	obj, err := s.storage.GetObject(opCtx, key)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: key %q", domain.ErrDocumentNotFound, key)
		}
		return nil, fmt.Errorf("storage read for key %q failed: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{data: obj.Data, version: obj.Version, fetchedAt: time.Now()}
	s.mu.Unlock()

	metrics.IncrementDocumentRead(key, "storage")
	s.logger.Debug(ctx, "Document fetched from storage", "key", key, "version", obj.Version)
	return obj.Data, nil
}

// SaveRaw serializes nothing; it writes the given bytes unconditionally,
// overwriting whatever is stored (last-writer-wins). The cache entry for key is
// invalidated locally and across replicas.
func (s *DocumentStore) SaveRaw(ctx context.Context, key string, data []byte) error {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	_, err := s.storage.PutObject(opCtx, key, data)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: key %q: %v", domain.ErrStorageWrite, key, err)
	}

	s.Invalidate(key)
	s.publishInvalidation(ctx, key)
	metrics.IncrementDocumentWrite(key, "save")
	s.logger.Info(ctx, "Document saved", "key", key, "bytes", len(data))
	return nil
}

// UpdateRaw performs an atomic read-modify-write: it reads the current document
// and version token directly from storage (the cache would risk lost updates),
// applies fn, and writes back conditionally on that token. On a version conflict
// it retries from the read with a jittered, growing delay. An absent key is
// presented to fn as nil bytes and created on commit.
//
// fn may run multiple times and must be pure over its input.
func (s *DocumentStore) UpdateRaw(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) ([]byte, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current := []byte(nil)
		version := domain.InitialVersion

		readCtx, cancelRead := context.WithTimeout(ctx, s.opTimeout)
		obj, err := s.storage.GetObject(readCtx, key)
		cancelRead()
		switch {
		case err == nil:
			current = obj.Data
			version = obj.Version
		case errors.Is(err, domain.ErrObjectNotFound):
			// Create-if-absent: start from the empty document at the initial version.
		default:
			return nil, fmt.Errorf("storage read for key %q failed: %w", key, err)
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}

		writeCtx, cancelWrite := context.WithTimeout(ctx, s.opTimeout)
		newVersion, err := s.storage.PutObjectIf(writeCtx, key, next, version)
		cancelWrite()
		if errors.Is(err, domain.ErrVersionMismatch) {
			metrics.IncrementUpdateConflict(key)
			s.logger.Warn(ctx, "Document update conflict, retrying", "key", key, "attempt", attempt, "expected_version", version)
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", domain.ErrStorageWrite, key, err)
		}

		s.mu.Lock()
		s.cache[key] = cacheEntry{data: next, version: newVersion, fetchedAt: time.Now()}
		s.mu.Unlock()
		s.publishInvalidation(ctx, key)

		metrics.IncrementDocumentWrite(key, "update")
		s.logger.Info(ctx, "Document updated", "key", key, "version", newVersion, "attempts", attempt)
		return next, nil
	}

	metrics.IncrementUpdateRetriesExhausted(key)
	return nil, fmt.Errorf("%w: key %q after %d attempts", domain.ErrConcurrentUpdateFailed, key, s.maxAttempts)
}

// Invalidate drops the local cache entry for a key.
func (s *DocumentStore) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

// HandleInvalidation processes an invalidation received from another replica.
// Messages originating from this replica are ignored; the local cache entry was
// already refreshed by the write itself.
func (s *DocumentStore) HandleInvalidation(msg domain.InvalidationMessage) {
	if msg.Origin != "" && msg.Origin == s.origin {
		return
	}
	s.Invalidate(msg.Key)
}

func (s *DocumentStore) publishInvalidation(ctx context.Context, key string) {
	if s.invalidations == nil {
		return
	}
	msg := domain.InvalidationMessage{Key: key, Origin: s.origin}
	if err := s.invalidations.PublishInvalidation(ctx, msg); err != nil {
		// Best effort: a missed invalidation only extends staleness up to the cache TTL.
		s.logger.Warn(ctx, "Failed to publish cache invalidation", "key", key, "error", err.Error())
	}
}

// backoff sleeps for a jittered delay growing with the attempt number, honoring
// context cancellation.
func (s *DocumentStore) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt)*s.retryBase + time.Duration(rand.Int63n(int64(s.retryBase)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get fetches and decodes the document at key into T. Fails with
// domain.ErrDocumentNotFound if the key is absent and domain.ErrDocumentDecode
// if the stored bytes are not valid JSON for T; partially-parsed data is never
// returned.
func Get[T any](ctx context.Context, s *DocumentStore, key string) (T, error) {
	var doc T
	raw, err := s.GetRaw(ctx, key)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%w: key %q: %v", domain.ErrDocumentDecode, key, err)
	}
	return doc, nil
}

// Save serializes doc and writes it unconditionally under key (last-writer-wins).
func Save[T any](ctx context.Context, s *DocumentStore, key string, doc T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document for key %q: %w", key, err)
	}
	return s.SaveRaw(ctx, key, data)
}

// Update applies fn to the current decoded document under the store's
// conditional-write retry loop and returns the committed document. An absent key
// presents fn with the zero value of T. fn may run multiple times.
func Update[T any](ctx context.Context, s *DocumentStore, key string, fn func(T) (T, error)) (T, error) {
	var committed T
	_, err := s.UpdateRaw(ctx, key, func(current []byte) ([]byte, error) {
		var doc T
		if len(current) > 0 {
			if err := json.Unmarshal(current, &doc); err != nil {
				return nil, fmt.Errorf("%w: key %q: %v", domain.ErrDocumentDecode, key, err)
			}
		}
		next, err := fn(doc)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document for key %q: %w", key, err)
		}
		committed = next
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return committed, nil
}
