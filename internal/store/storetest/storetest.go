// Package storetest holds the behaviour every store.KV backend must share.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restodesk/backend/internal/store"
)

// Run exercises kv against the common contract. Collection and sequence
// names are suffixed so runs against shared databases do not collide.
func Run(t *testing.T, kv store.KV) {
	t.Helper()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	coll := "contract-" + suffix
	seq := "contract-seq-" + suffix

	t.Run("put get delete", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, kv.Put(ctx, coll, "k1", []byte(`{"n":1}`)))

		got, err := kv.Get(ctx, coll, "k1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1}`, string(got))

		require.NoError(t, kv.Delete(ctx, coll, "k1"))
		_, err = kv.Get(ctx, coll, "k1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, kv.Delete(ctx, coll, "k1"), store.ErrNotFound)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		ctx := context.Background()
		name := coll + "-order"
		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, kv.Put(ctx, name, id, []byte(`{"id":"`+id+`"}`)))
		}
		require.NoError(t, kv.Put(ctx, name, "c", []byte(`{"id":"c","v":2}`)))

		records, err := kv.List(ctx, name)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"c", "a", "b"}, []string{records[0].ID, records[1].ID, records[2].ID})
		assert.JSONEq(t, `{"id":"c","v":2}`, string(records[0].Value))
	})

	t.Run("empty list", func(t *testing.T) {
		records, err := kv.List(context.Background(), coll+"-empty")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("sequences", func(t *testing.T) {
		ctx := context.Background()
		first, err := kv.Next(ctx, seq)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first)

		require.NoError(t, kv.Reserve(ctx, seq, 10))
		require.NoError(t, kv.Reserve(ctx, seq, 3))
		next, err := kv.Next(ctx, seq)
		require.NoError(t, err)
		assert.Equal(t, int64(11), next)
	})
}
