package repokit

import (
	"context"
	"fmt"
	"time"
)

// Guarder is anything that can check its backends, e.g. *store.Store
type Guarder interface {
	Guard(context.Context) error
}

// MustGuard panics when a configured backend does not answer within timeout
// boot calls it after store.Open so a dead database stops the process before it takes uploads
func MustGuard(ctx context.Context, g Guarder, timeout time.Duration) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := g.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
