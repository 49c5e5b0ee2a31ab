package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// ClientIPKey is the context key for the rate-limit identity derived from the request.
	ClientIPKey contextKey = "client_ip"

	// SessionIDKey is the context key for the CSRF session id bound to the request.
	SessionIDKey contextKey = "session_id"

	// AdminIDKey is the context key for the authenticated admin id from the admin token.
	AdminIDKey contextKey = "admin_id"

	// AdminContextKey is the context key for storing the entire AdminUserContext struct.
	AdminContextKey contextKey = "admin_user_context"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
