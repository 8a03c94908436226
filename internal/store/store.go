package store

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL is applied by Expire when no ttl is given.
const DefaultTTL = 3600 * time.Second

// Store is an async key-value store with expiration. Values are stored as
// JSON text.
type Store interface {
	// Get decodes the value under key into dst. A missing key and an empty
	// value both report (false, nil).
	Get(ctx context.Context, key string, dst any) (bool, error)
	// SetIfAbsent stores value only when key does not exist yet and reports
	// whether the write happened.
	SetIfAbsent(ctx context.Context, key string, value any) (bool, error)
	// Expire sets a ttl on an existing key. ttl <= 0 means the store default.
	// With onlyIfNoExpiry an already set ttl is left untouched.
	Expire(ctx context.Context, key string, ttl time.Duration, onlyIfNoExpiry bool) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Error is returned for any failed store operation.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err}
}
