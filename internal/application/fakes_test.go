package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// nopLogger satisfies domain.Logger without output.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l nopLogger) With(fields ...any) domain.Logger                   { return l }

// staticConfigProvider serves a fixed config snapshot.
type staticConfigProvider struct {
	cfg *config.Config
}

func (p *staticConfigProvider) Get() *config.Config { return p.cfg }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{PodID: "pod-test"},
		CSRF:   config.CSRFConfig{TokenTTLSeconds: 7200},
		Store: config.StoreConfig{
			CacheTTLSeconds:      30,
			UpdateMaxAttempts:    5,
			UpdateRetryBaseMs:    1,
			OperationTimeoutSecs: 10,
		},
	}
}

// memObjectStorage is an in-memory versioned object store matching the Redis
// adapter's semantics: an integer version counter starting past "0", conditional
// writes failing on token mismatch, create-if-absent at the initial version.
type memObjectStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	versions map[string]int64

	// putIfHook, when set, runs inside the lock just before the version
	// comparison. Tests use it to interleave writers deterministically.
	putIfHook func(key string)
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{
		objects:  make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

func (m *memObjectStorage) GetObject(ctx context.Context, key string) (*domain.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return &domain.StoredObject{Data: cp, Version: strconv.FormatInt(m.versions[key], 10)}, nil
}

func (m *memObjectStorage) PutObject(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(key, data), nil
}

func (m *memObjectStorage) PutObjectIf(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putIfHook != nil {
		m.putIfHook(key)
	}
	current := domain.InitialVersion
	if _, ok := m.objects[key]; ok {
		current = strconv.FormatInt(m.versions[key], 10)
	}
	if current != expectedVersion {
		return "", domain.ErrVersionMismatch
	}
	return m.putLocked(key, data), nil
}

func (m *memObjectStorage) putLocked(key string, data []byte) string {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	m.versions[key]++
	return strconv.FormatInt(m.versions[key], 10)
}

func (m *memObjectStorage) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// The version counter outlives the object so stale tokens stay fenced out.
	delete(m.objects, key)
	return nil
}

// recordingInvalidations captures published invalidation messages.
type recordingInvalidations struct {
	mu       sync.Mutex
	messages []domain.InvalidationMessage
}

func (r *recordingInvalidations) PublishInvalidation(ctx context.Context, msg domain.InvalidationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingInvalidations) published() []domain.InvalidationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.InvalidationMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// memCSRFStore is an in-memory CSRFTokenStore honoring TTLs.
type memCSRFStore struct {
	mu     sync.Mutex
	tokens map[string]*domain.CSRFToken
}

func newMemCSRFStore() *memCSRFStore {
	return &memCSRFStore{tokens: make(map[string]*domain.CSRFToken)}
}

func (m *memCSRFStore) Get(ctx context.Context, sessionID string) (*domain.CSRFToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[sessionID]
	if !ok {
		return nil, ErrCacheMiss
	}
	return token, nil
}

func (m *memCSRFStore) Set(ctx context.Context, sessionID string, token *domain.CSRFToken, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[sessionID] = token
	return nil
}

func (m *memCSRFStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, sessionID)
	return nil
}

// recordingEvents captures published domain events.
type recordingEvents struct {
	mu       sync.Mutex
	content  []domain.ContentEvent
	contacts []domain.ContactMessage
}

func (r *recordingEvents) PublishContentEvent(ctx context.Context, event domain.ContentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = append(r.content, event)
	return nil
}

func (r *recordingEvents) PublishContactReceived(ctx context.Context, msg domain.ContactMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = append(r.contacts, msg)
	return nil
}

func newTestDocumentStore(storage domain.ObjectStorage, invalidations domain.CacheInvalidationPublisher) *DocumentStore {
	return NewDocumentStore(nopLogger{}, &staticConfigProvider{cfg: testConfig()}, storage, invalidations)
}
