// Package locker provides keyed mutual exclusion used to serialize
// counter updates per contract during reconciliation.
package locker

import (
	"context"
	"time"
)

// Locker is a keyed lock registry. A held key cannot be re-acquired until
// released or its TTL expires.
type Locker interface {
	// TryLock attempts to take the key. ok is false when the key is held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}
