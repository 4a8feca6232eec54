package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restodesk/backend/internal/store"
	"restodesk/backend/internal/store/storetest"
)

func TestPutKeepsInsertionOrderAcrossUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, "orders", "a", []byte(`1`)))
	require.NoError(t, s.Put(ctx, "orders", "b", []byte(`2`)))
	require.NoError(t, s.Put(ctx, "orders", "c", []byte(`3`)))
	require.NoError(t, s.Put(ctx, "orders", "a", []byte(`10`)))

	records, err := s.List(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, `10`, string(records[0].Value))
	assert.Equal(t, "c", records[2].ID)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	s := New()
	err := s.Delete(context.Background(), "orders", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Get(context.Background(), "orders", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQuotaRejectsOversizedWrite(t *testing.T) {
	ctx := context.Background()
	s := NewWithQuota(8)

	require.NoError(t, s.Put(ctx, "drafts", "a", []byte(`"1234"`)))
	err := s.Put(ctx, "drafts", "b", []byte(`"12345"`))
	assert.ErrorIs(t, err, store.ErrQuotaExceeded)
	assert.Equal(t, "quota_exceeded", store.Kind(err))

	// Replacing a value only counts the difference.
	require.NoError(t, s.Put(ctx, "drafts", "a", []byte(`"123456"`)))
	assert.Equal(t, 8, s.UsedBytes())
}

func TestNextIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	seen := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Next(ctx, "orders")
			if err == nil {
				seen <- n
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, 100)
}

func TestReserveNeverLowersCounter(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Reserve(ctx, "returns", 5))
	require.NoError(t, s.Reserve(ctx, "returns", 2))
	n, err := s.Next(ctx, "returns")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestCollectionAllReportsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "items", "1", []byte(`{"name":"ok"}`)))
	require.NoError(t, s.Put(ctx, "items", "2", []byte(`{broken`)))

	type item struct {
		Name string `json:"name"`
	}
	items, err := store.NewCollection[item](s, "items").All(ctx)
	assert.ErrorIs(t, err, store.ErrCorrupt)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].Name)

	def := item{Name: "default"}
	got := store.NewCollection[item](s, "items").ReadOr(ctx, "2", def)
	assert.Equal(t, def, got)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, New())
}
