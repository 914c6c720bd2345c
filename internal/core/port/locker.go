package port

import "context"

// EntityLocker serializes commands against one entity id.
type EntityLocker interface {
	// Lock blocks until the key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
