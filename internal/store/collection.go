package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// Collection is a typed JSON view over one KV collection.
type Collection[T any] struct {
	kv   KV
	name string
}

func NewCollection[T any](kv KV, name string) *Collection[T] {
	return &Collection[T]{kv: kv, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) Load(ctx context.Context, id string) (T, error) {
	var out T
	raw, err := c.kv.Get(ctx, c.name, id)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s/%s: %w: %v", c.name, id, ErrCorrupt, err)
	}
	return out, nil
}

// ReadOr returns the stored value or def when it is missing or unreadable.
// Failures other than a missing record are logged.
func (c *Collection[T]) ReadOr(ctx context.Context, id string, def T) T {
	val, err := c.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[store] WARN: read %s/%s failed, using default: %v", c.name, id, err)
		}
		return def
	}
	return val
}

// All decodes every record in insertion order. Records that fail to decode
// are skipped and reported through an ErrCorrupt error alongside the ones
// that did decode.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	records, err := c.kv.List(ctx, c.name)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	var corrupt []string
	for _, rec := range records {
		var val T
		if err := json.Unmarshal(rec.Value, &val); err != nil {
			corrupt = append(corrupt, rec.ID)
			continue
		}
		out = append(out, val)
	}
	if len(corrupt) > 0 {
		return out, fmt.Errorf("%s: %w: ids %v", c.name, ErrCorrupt, corrupt)
	}
	return out, nil
}

func (c *Collection[T]) Save(ctx context.Context, id string, val T) error {
	payload, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("%s/%s: encode: %w", c.name, id, err)
	}
	return c.kv.Put(ctx, c.name, id, payload)
}

func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	return c.kv.Delete(ctx, c.name, id)
}
