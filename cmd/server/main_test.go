package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"restodesk/backend/internal/config"
	"restodesk/backend/internal/store"
)

func TestMemoryStoreSeedsDemoData(t *testing.T) {
	kv := memoryStore(config.Config{SeedDemoData: true})
	records, err := kv.List(context.Background(), "products")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("expected seeded products")
	}
}

func TestMemoryStoreAppliesQuota(t *testing.T) {
	kv := memoryStore(config.Config{StoreQuotaBytes: 16})
	err := kv.Put(context.Background(), "orders", "ORD-001", []byte(`{"id":"ORD-001","customer":"Ali"}`))
	if !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestIntervalsFollowConfig(t *testing.T) {
	iv := intervals(config.Config{KitchenPollSeconds: 20, SellerPollSeconds: 60, StatsRebuildMinutes: 5})
	if iv.Kitchen != 20*time.Second || iv.SellerHome != time.Minute || iv.DeliveryStats != 5*time.Minute {
		t.Fatalf("unexpected intervals: %+v", iv)
	}
	if iv.RemoteImport != 0 {
		t.Fatalf("expected remote import disabled, got %s", iv.RemoteImport)
	}
}

func TestOpenBackendDefaultsToMemory(t *testing.T) {
	be, err := openBackend(context.Background(), config.Config{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	if be.kv == nil || be.reports == nil {
		t.Fatalf("expected store and report cache, got %+v", be)
	}
	if len(be.closers) != 0 {
		t.Fatalf("memory backend needs no closers, got %d", len(be.closers))
	}
}
