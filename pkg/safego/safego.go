package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// Execute runs fn in a new goroutine and recovers from any panic within it,
// logging the panic with the provided logger, the goroutine name, and a stack trace.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				// Fall back to a background context so the panic is still logged
				// when the original context has already been cancelled.
				logCtx := ctx
				if ctx.Err() != nil {
					logCtx = context.Background()
				}
				logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
					"panic_info", fmt.Sprintf("%v", r),
					"stacktrace", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
