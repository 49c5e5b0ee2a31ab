package storagekeys

import (
	"fmt"

	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/crypto"
)

// DocumentKey generates the storage key holding the JSON bytes of a named document.
func DocumentKey(name string) string {
	return fmt.Sprintf("doc:%s", name)
}

// DocumentVersionKey generates the storage key holding the version counter of a named document.
func DocumentVersionKey(name string) string {
	return fmt.Sprintf("docver:%s", name)
}

// CSRFTokenKey generates the storage key for the CSRF token bound to a session id.
// The session id is hashed so cookie values never appear verbatim in the keyspace.
func CSRFTokenKey(sessionID string) string {
	return fmt.Sprintf("csrf:%s", crypto.Sha256Hex(sessionID))
}

// AdminTokenCacheKey generates the storage key for caching a validated admin token.
// It takes the original raw token string, hashes it, and then formats the key.
func AdminTokenCacheKey(rawToken string) string {
	return fmt.Sprintf("admin_token_cache:%s", crypto.Sha256Hex(rawToken))
}

// InvalidationChannel is the pub/sub channel carrying document cache invalidations.
func InvalidationChannel() string {
	return "doc_invalidate"
}
