package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrCorrupt       = errors.New("corrupt record")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrUnavailable   = errors.New("storage unavailable")
)

// Record is one stored value. Records are returned in insertion order.
type Record struct {
	ID    string
	Value []byte
}

// KV is the persistence port every repository is built on. A Put on an
// existing id replaces the value in place and keeps its position.
type KV interface {
	Get(ctx context.Context, collection string, id string) ([]byte, error)
	Put(ctx context.Context, collection string, id string, value []byte) error
	Delete(ctx context.Context, collection string, id string) error
	List(ctx context.Context, collection string) ([]Record, error)
	// Next returns the next value of the named counter, starting at 1.
	Next(ctx context.Context, sequence string) (int64, error)
	// Reserve raises the named counter to at least atLeast. It never lowers it.
	Reserve(ctx context.Context, sequence string, atLeast int64) error
}

// Kind classifies err into one of the storage error kinds, or "" if it is
// none of them.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCorrupt):
		return "corrupt"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
