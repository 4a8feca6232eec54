package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/store"
)

var _ store.KV = (*Store)(nil)

type collection struct {
	order  []string
	values map[string][]byte
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	sequences   map[string]int64
	quotaBytes  int
	usedBytes   int
}

func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		sequences:   make(map[string]int64),
	}
}

// NewWithQuota returns a store that rejects writes once the total stored
// payload would exceed quotaBytes. A quota below 1 means unlimited.
func NewWithQuota(quotaBytes int) *Store {
	s := New()
	s.quotaBytes = quotaBytes
	return s
}

// SetQuota changes the write cap; data already stored is kept even when it
// exceeds the new quota.
func (s *Store) SetQuota(quotaBytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotaBytes = quotaBytes
}

// NewSeeded returns a store holding the demo catalogue and the two house
// customer accounts used in dev mode.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "PRD-001", Name: "Nasi Goreng Spesial", Stock: 40, MinStock: 10, PriceCents: 3500000, Category: "main"},
		{ID: "PRD-002", Name: "Mie Ayam Bakso", Stock: 35, MinStock: 10, PriceCents: 2800000, Category: "main"},
		{ID: "PRD-003", Name: "Sate Ayam 10 Tusuk", Stock: 25, MinStock: 8, PriceCents: 3200000, Category: "grill"},
		{ID: "PRD-004", Name: "Es Teh Manis", Stock: 120, MinStock: 30, PriceCents: 800000, Category: "beverage"},
		{ID: "PRD-005", Name: "Es Jeruk", Stock: 90, MinStock: 30, PriceCents: 1200000, Category: "beverage"},
		{ID: "PRD-006", Name: "Pisang Goreng", Stock: 6, MinStock: 10, PriceCents: 1500000, Category: "snack"},
	}
	for _, p := range products {
		p.CreatedAt = now
		s.mustSeed(ctx, "products", p.ID, p)
	}

	customers := []domain.Customer{
		{ID: "CUST-1", Name: "Walk-in", Phone: "", CreatedAt: now},
		{ID: "CUST-2", Name: "Staff Meal", Phone: "", CreatedAt: now},
	}
	for _, c := range customers {
		s.mustSeed(ctx, "customers", c.ID, c)
	}
	s.sequences["products"] = int64(len(products))

	return s
}

func (s *Store) mustSeed(ctx context.Context, coll string, id string, val any) {
	payload, err := json.Marshal(val)
	if err != nil {
		log.Fatalf("[memory-store] failed to encode seed %s/%s: %v", coll, id, err)
	}
	if err := s.Put(ctx, coll, id, payload); err != nil {
		log.Fatalf("[memory-store] failed to seed %s/%s: %v", coll, id, err)
	}
}

func (s *Store) Get(_ context.Context, coll string, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[coll]
	if !ok {
		return nil, store.ErrNotFound
	}
	val, ok := c.values[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBytes(val), nil
}

func (s *Store) Put(_ context.Context, coll string, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[coll]
	if !ok {
		c = &collection{values: make(map[string][]byte)}
		s.collections[coll] = c
	}

	prev, exists := c.values[id]
	used := s.usedBytes - len(prev) + len(value)
	if s.quotaBytes > 0 && used > s.quotaBytes {
		return fmt.Errorf("put %s/%s: %w", coll, id, store.ErrQuotaExceeded)
	}

	if !exists {
		c.order = append(c.order, id)
	}
	c.values[id] = cloneBytes(value)
	s.usedBytes = used
	return nil
}

func (s *Store) Delete(_ context.Context, coll string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[coll]
	if !ok {
		return store.ErrNotFound
	}
	prev, ok := c.values[id]
	if !ok {
		return store.ErrNotFound
	}

	delete(c.values, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.usedBytes -= len(prev)
	return nil
}

func (s *Store) List(_ context.Context, coll string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[coll]
	if !ok {
		return []store.Record{}, nil
	}
	records := make([]store.Record, 0, len(c.order))
	for _, id := range c.order {
		records = append(records, store.Record{ID: id, Value: cloneBytes(c.values[id])})
	}
	return records, nil
}

func (s *Store) Next(_ context.Context, sequence string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[sequence]++
	return s.sequences[sequence], nil
}

func (s *Store) Reserve(_ context.Context, sequence string, atLeast int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sequences[sequence] < atLeast {
		s.sequences[sequence] = atLeast
	}
	return nil
}

// UsedBytes reports the payload bytes currently held.
func (s *Store) UsedBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usedBytes
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
