package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

type testDoc struct {
	Items []string `json:"items"`
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestDocumentStore(newMemObjectStorage(), nil)

	want := testDoc{Items: []string{"a", "b"}}
	if err := Save(ctx, store, "test.json", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Get[testDoc](ctx, store, "test.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0] != "a" || got.Items[1] != "b" {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDocumentStoreGetMissingKey(t *testing.T) {
	ctx := context.Background()
	store := newTestDocumentStore(newMemObjectStorage(), nil)

	_, err := Get[testDoc](ctx, store, "absent.json")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDocumentStoreGetCorruptDocument(t *testing.T) {
	ctx := context.Background()
	storage := newMemObjectStorage()
	store := newTestDocumentStore(storage, nil)

	if _, err := storage.PutObject(ctx, "bad.json", []byte("{not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := Get[testDoc](ctx, store, "bad.json")
	if !errors.Is(err, domain.ErrDocumentDecode) {
		t.Fatalf("expected ErrDocumentDecode, got %v", err)
	}
}

func TestDocumentStoreUpdateCreatesAbsentDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestDocumentStore(newMemObjectStorage(), nil)

	got, err := Update(ctx, store, "fresh.json", func(doc testDoc) (testDoc, error) {
		doc.Items = append(doc.Items, "first")
		return doc, nil
	})
	if err != nil {
		t.Fatalf("Update on absent key failed: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0] != "first" {
		t.Errorf("unexpected committed document: %+v", got)
	}
}

func TestDocumentStoreConcurrentUpdatesLoseNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestDocumentStore(newMemObjectStorage(), nil)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := Update(ctx, store, "counter.json", func(doc testDoc) (testDoc, error) {
				doc.Items = append(doc.Items, "x")
				return doc, nil
			})
			if err != nil {
				t.Errorf("writer %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := Get[testDoc](ctx, store, "counter.json")
	if err != nil {
		t.Fatalf("Get after concurrent updates failed: %v", err)
	}
	if len(got.Items) != writers {
		t.Errorf("lost updates: got %d items, want %d", len(got.Items), writers)
	}
}

func TestDocumentStoreIdentityUpdateNoConflict(t *testing.T) {
	ctx := context.Background()
	storage := newMemObjectStorage()
	store := newTestDocumentStore(storage, nil)

	if err := Save(ctx, store, "stable.json", testDoc{Items: []string{"keep"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	calls := 0
	_, err := Update(ctx, store, "stable.json", func(doc testDoc) (testDoc, error) {
		calls++
		return doc, nil
	})
	if err != nil {
		t.Fatalf("identity update failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("identity update retried: fn ran %d times, want 1", calls)
	}
}

func TestDocumentStoreUpdateRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	storage := newMemObjectStorage()
	store := newTestDocumentStore(storage, nil)

	if err := Save(ctx, store, "hot.json", testDoc{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Bump the version under every conditional write so no attempt commits.
	storage.putIfHook = func(key string) {
		storage.versions[key]++
	}

	_, err := Update(ctx, store, "hot.json", func(doc testDoc) (testDoc, error) {
		return doc, nil
	})
	if !errors.Is(err, domain.ErrConcurrentUpdateFailed) {
		t.Fatalf("expected ErrConcurrentUpdateFailed, got %v", err)
	}
}

func TestDocumentStoreUpdateFnErrorStopsLoop(t *testing.T) {
	ctx := context.Background()
	store := newTestDocumentStore(newMemObjectStorage(), nil)

	wantErr := errors.New("domain rejection")
	_, err := Update(ctx, store, "reject.json", func(doc testDoc) (testDoc, error) {
		return doc, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error to surface, got %v", err)
	}

	if _, err := Get[testDoc](ctx, store, "reject.json"); err == nil {
		t.Error("document was created despite fn error")
	}
}

func TestDocumentStoreSavePublishesInvalidation(t *testing.T) {
	ctx := context.Background()
	inval := &recordingInvalidations{}
	store := newTestDocumentStore(newMemObjectStorage(), inval)

	if err := Save(ctx, store, "broadcast.json", testDoc{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	msgs := inval.published()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 invalidation message, got %d", len(msgs))
	}
	if msgs[0].Key != "broadcast.json" || msgs[0].Origin != "pod-test" {
		t.Errorf("unexpected invalidation message: %+v", msgs[0])
	}
}

func TestDocumentStoreHandleInvalidation(t *testing.T) {
	ctx := context.Background()
	storage := newMemObjectStorage()
	store := newTestDocumentStore(storage, nil)

	if err := Save(ctx, store, "shared.json", testDoc{Items: []string{"v1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Warm the cache.
	if _, err := Get[testDoc](ctx, store, "shared.json"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Another replica writes directly to storage.
	if _, err := storage.PutObject(ctx, "shared.json", []byte(`{"items":["v2"]}`)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// A message from this replica's own origin is ignored.
	store.HandleInvalidation(domain.InvalidationMessage{Key: "shared.json", Origin: "pod-test"})
	got, err := Get[testDoc](ctx, store, "shared.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Items[0] != "v1" {
		t.Errorf("own-origin invalidation dropped the cache entry")
	}

	// A foreign origin drops the entry; the next read refetches.
	store.HandleInvalidation(domain.InvalidationMessage{Key: "shared.json", Origin: "pod-other"})
	got, err = Get[testDoc](ctx, store, "shared.json")
	if err != nil {
		t.Fatalf("Get after invalidation failed: %v", err)
	}
	if got.Items[0] != "v2" {
		t.Errorf("cache not refreshed after foreign invalidation: got %+v", got)
	}
}

// stalledObjectStorage blocks every call until the caller's context expires,
// standing in for an unresponsive storage backend.
type stalledObjectStorage struct{}

func (stalledObjectStorage) GetObject(ctx context.Context, key string) (*domain.StoredObject, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledObjectStorage) PutObject(ctx context.Context, key string, data []byte) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stalledObjectStorage) PutObjectIf(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stalledObjectStorage) DeleteObject(ctx context.Context, key string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDocumentStoreOperationTimeout(t *testing.T) {
	ctx := context.Background()
	store := newTestDocumentStore(stalledObjectStorage{}, nil)
	store.opTimeout = 20 * time.Millisecond

	done := make(chan struct{})
	var getErr, updateErr, saveErr error
	go func() {
		defer close(done)
		_, getErr = store.GetRaw(ctx, "stylists.json")
		_, updateErr = store.UpdateRaw(ctx, "stylists.json", func(current []byte) ([]byte, error) {
			return current, nil
		})
		saveErr = store.SaveRaw(ctx, "stylists.json", []byte(`{}`))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("storage calls did not return within the operation timeout")
	}
	if !errors.Is(getErr, context.DeadlineExceeded) {
		t.Errorf("GetRaw error = %v, want context.DeadlineExceeded", getErr)
	}
	if !errors.Is(updateErr, context.DeadlineExceeded) {
		t.Errorf("UpdateRaw error = %v, want context.DeadlineExceeded", updateErr)
	}
	if !errors.Is(saveErr, domain.ErrStorageWrite) {
		t.Errorf("SaveRaw error = %v, want wrapped storage write failure", saveErr)
	}
}

func TestVersionTokensFencedAcrossDelete(t *testing.T) {
	ctx := context.Background()
	storage := newMemObjectStorage()
	const key = "styles.json"

	if _, err := storage.PutObject(ctx, key, []byte(`{"n":1}`)); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	obj, err := storage.GetObject(ctx, key)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	stale := obj.Version

	if err := storage.DeleteObject(ctx, key); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	// A token issued before the delete must not commit against the absent key.
	if _, err := storage.PutObjectIf(ctx, key, []byte(`{"n":2}`), stale); !errors.Is(err, domain.ErrVersionMismatch) {
		t.Fatalf("PutObjectIf with pre-delete token: err = %v, want ErrVersionMismatch", err)
	}

	// Only a create carrying the initial version is accepted, and the counter
	// continues past its pre-delete value.
	recreated, err := storage.PutObjectIf(ctx, key, []byte(`{"n":3}`), domain.InitialVersion)
	if err != nil {
		t.Fatalf("PutObjectIf create after delete: %v", err)
	}
	if recreated == stale {
		t.Errorf("recreated version %q reuses the pre-delete token", recreated)
	}

	// The stale token must not match the recreated document either.
	if _, err := storage.PutObjectIf(ctx, key, []byte(`{"n":4}`), stale); !errors.Is(err, domain.ErrVersionMismatch) {
		t.Fatalf("PutObjectIf with stale token after recreate: err = %v, want ErrVersionMismatch", err)
	}
}
