package lock

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker serializes work per key. Acquire blocks until the key is free, the lock
// timeout expires (ErrLockTimeout) or ctx is done. The returned release func is safe
// to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// OrderKey is the lock key of one order within a channel.
func OrderKey(channelToken, orderCode string) string {
	return "subscriptions:lock:" + channelToken + ":" + orderCode
}
