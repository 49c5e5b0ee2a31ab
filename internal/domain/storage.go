package domain

import (
	"context"
	"errors"
)

// InitialVersion is the version token of a key that has never been written.
// A conditional write against it acts as create-if-absent.
const InitialVersion = "0"

// Storage-level sentinel errors. The document store translates these into its
// own taxonomy; adapters return them unwrapped alongside transport errors.
var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrVersionMismatch = errors.New("object version mismatch")
)

// StoredObject is an object read from storage together with its version token.
type StoredObject struct {
	Data    []byte
	Version string
}

// ObjectStorage is a thin wrapper over a versioned object store. Every stored
// object carries an opaque version token that changes on each successful write;
// PutObjectIf only commits when the caller's expected token still matches.
type ObjectStorage interface {
	// GetObject fetches the object and its current version token.
	// Returns ErrObjectNotFound if the key has never been written.
	GetObject(ctx context.Context, key string) (*StoredObject, error)

	// PutObject writes the object unconditionally and returns the new version token.
	PutObject(ctx context.Context, key string, data []byte) (string, error)

	// PutObjectIf writes the object only if the current version token equals
	// expectedVersion (compare-and-swap). Returns ErrVersionMismatch when the
	// token has moved; the new version token on success.
	PutObjectIf(ctx context.Context, key string, data []byte, expectedVersion string) (string, error)

	// DeleteObject removes the object. The version counter survives the delete,
	// so a token read before the delete never matches a recreated object; the
	// only conditional write accepted against an absent object is one carrying
	// InitialVersion.
	DeleteObject(ctx context.Context, key string) error
}

// InvalidationMessage is broadcast when a replica writes a document, so that
// other replicas drop their cached copy.
type InvalidationMessage struct {
	Key    string `json:"key"`
	Origin string `json:"origin"` // pod id of the writer; the writer ignores its own messages
}

// CacheInvalidationPublisher broadcasts document cache invalidations to all replicas.
type CacheInvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, msg InvalidationMessage) error
}

// InvalidationHandler is invoked for each invalidation received from the channel.
type InvalidationHandler func(msg InvalidationMessage)

// CacheInvalidationSubscriber listens for document cache invalidations.
type CacheInvalidationSubscriber interface {
	// SubscribeToInvalidations blocks consuming the invalidation channel and
	// invoking handler per message; it should be run in a goroutine and exits
	// when ctx is cancelled.
	SubscribeToInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}
