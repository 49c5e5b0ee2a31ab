package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/storagekeys"
)

// putScript writes the document bytes and bumps the version counter atomically.
// KEYS[1] = data key, KEYS[2] = version key, ARGV[1] = data.
const putScript = `
	redis.call("set", KEYS[1], ARGV[1])
	return redis.call("incr", KEYS[2])
`

// putIfScript is the conditional write: it commits only when the stored version
// counter still equals the caller's expected version, otherwise returns -1.
// An absent document accepts only the initial version "0", so a conditional
// write against it doubles as create-if-absent. The counter itself survives
// deletes and keeps incrementing, which keeps tokens issued before a delete
// from ever matching a recreated document.
// KEYS[1] = data key, KEYS[2] = version key, ARGV[1] = data, ARGV[2] = expected version.
const putIfScript = `
	if redis.call("exists", KEYS[1]) == 0 then
		if ARGV[2] ~= "0" then
			return -1
		end
		redis.call("set", KEYS[1], ARGV[1])
		return redis.call("incr", KEYS[2])
	end
	local current = redis.call("get", KEYS[2])
	if current == false then
		current = "0"
	end
	if current ~= ARGV[2] then
		return -1
	end
	redis.call("set", KEYS[1], ARGV[1])
	return redis.call("incr", KEYS[2])
`

// ObjectStorageAdapter implements domain.ObjectStorage on Redis. Each logical
// document occupies two keys: the JSON bytes and an integer version counter that
// increments on every successful write and acts as the version token.
type ObjectStorageAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewObjectStorageAdapter creates a new instance of ObjectStorageAdapter.
func NewObjectStorageAdapter(redisClient *redis.Client, logger domain.Logger) *ObjectStorageAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewObjectStorageAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewObjectStorageAdapter")
	}
	return &ObjectStorageAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// GetObject fetches the document bytes and the current version token in a single
// MGET so the pair is read atomically.
func (a *ObjectStorageAdapter) GetObject(ctx context.Context, key string) (*domain.StoredObject, error) {
	dataKey := storagekeys.DocumentKey(key)
	versionKey := storagekeys.DocumentVersionKey(key)

	vals, err := a.redisClient.MGet(ctx, dataKey, versionKey).Result()
	if err != nil {
		a.logger.Error(ctx, "Redis MGET failed for document read", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis MGET for document '%s' failed: %w", key, err)
	}

	if vals[0] == nil {
		a.logger.Debug(ctx, "Document not found in storage", "key", key)
		return nil, domain.ErrObjectNotFound
	}

	data, ok := vals[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected value type for document '%s'", key)
	}

	version := domain.InitialVersion
	if vals[1] != nil {
		if v, ok := vals[1].(string); ok {
			version = v
		}
	}

	a.logger.Debug(ctx, "Document read from storage", "key", key, "version", version, "bytes", len(data))
	return &domain.StoredObject{Data: []byte(data), Version: version}, nil
}

// PutObject writes the document unconditionally and returns the new version token.
func (a *ObjectStorageAdapter) PutObject(ctx context.Context, key string, data []byte) (string, error) {
	dataKey := storagekeys.DocumentKey(key)
	versionKey := storagekeys.DocumentVersionKey(key)

	result, err := a.redisClient.Eval(ctx, putScript, []string{dataKey, versionKey}, data).Int64()
	if err != nil {
		a.logger.Error(ctx, "Redis EVAL (put script) failed", "key", key, "error", err.Error())
		return "", fmt.Errorf("redis EVAL for PutObject on key '%s' failed: %w", key, err)
	}

	newVersion := strconv.FormatInt(result, 10)
	a.logger.Debug(ctx, "Document written unconditionally", "key", key, "new_version", newVersion)
	return newVersion, nil
}

// PutObjectIf writes the document only when the stored version token still equals
// expectedVersion. Returns domain.ErrVersionMismatch when a concurrent writer moved it.
func (a *ObjectStorageAdapter) PutObjectIf(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	dataKey := storagekeys.DocumentKey(key)
	versionKey := storagekeys.DocumentVersionKey(key)

	result, err := a.redisClient.Eval(ctx, putIfScript, []string{dataKey, versionKey}, data, expectedVersion).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		a.logger.Error(ctx, "Redis EVAL (conditional put script) failed", "key", key, "expected_version", expectedVersion, "error", err.Error())
		return "", fmt.Errorf("redis EVAL for PutObjectIf on key '%s' failed: %w", key, err)
	}

	if result == -1 {
		a.logger.Debug(ctx, "Conditional write rejected, version moved", "key", key, "expected_version", expectedVersion)
		return "", domain.ErrVersionMismatch
	}

	newVersion := strconv.FormatInt(result, 10)
	a.logger.Debug(ctx, "Conditional write committed", "key", key, "expected_version", expectedVersion, "new_version", newVersion)
	return newVersion, nil
}

// DeleteObject removes the document bytes. The version counter is left in place
// so tokens read before the delete stay invalid against a recreated document.
func (a *ObjectStorageAdapter) DeleteObject(ctx context.Context, key string) error {
	dataKey := storagekeys.DocumentKey(key)

	if err := a.redisClient.Del(ctx, dataKey).Err(); err != nil {
		a.logger.Error(ctx, "Redis DEL failed for document", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for document '%s' failed: %w", key, err)
	}
	a.logger.Info(ctx, "Document deleted from storage", "key", key)
	return nil
}
