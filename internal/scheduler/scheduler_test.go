package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/feed"
	"restodesk/backend/internal/service"
)

type sourceStub struct {
	mu       sync.Mutex
	boards   int
	rebuilds int
	imported []domain.Order
	fail     error
}

func (s *sourceStub) KitchenBoard(context.Context) (service.KitchenBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards++
	return service.KitchenBoard{Counts: map[string]int{"pending": s.boards}}, s.fail
}

func (s *sourceStub) SellerHome(context.Context) (service.SellerHome, error) {
	return service.SellerHome{ActiveOrders: 1}, s.fail
}

func (s *sourceStub) RebuildAllDeliveryStats(context.Context) ([]domain.DeliveryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuilds++
	return nil, s.fail
}

func (s *sourceStub) ImportOrders(_ context.Context, orders []domain.Order) (int, error) {
	s.imported = append(s.imported, orders...)
	return len(orders), nil
}

func (s *sourceStub) boardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boards
}

type broadcastStub struct {
	mu     sync.Mutex
	topics []string
}

func (b *broadcastStub) Broadcast(topic string, _ any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	return 1
}

type fetcherStub struct {
	orders []domain.Order
}

func (f fetcherStub) FetchOrders(context.Context) ([]domain.Order, error) {
	return f.orders, nil
}

func TestRefreshJobsBroadcast(t *testing.T) {
	src := &sourceStub{}
	hub := &broadcastStub{}
	s := New(time.UTC, src, hub, nil, nil)

	if err := s.RefreshKitchen(context.Background()); err != nil {
		t.Fatalf("kitchen refresh failed: %v", err)
	}
	if err := s.RefreshSellerHome(context.Background()); err != nil {
		t.Fatalf("seller refresh failed: %v", err)
	}
	if len(hub.topics) != 2 || hub.topics[0] != feed.TopicKitchen || hub.topics[1] != feed.TopicSeller {
		t.Fatalf("unexpected broadcasts: %v", hub.topics)
	}
}

func TestFailedRefreshDoesNotBroadcast(t *testing.T) {
	src := &sourceStub{fail: errors.New("storage down")}
	hub := &broadcastStub{}
	s := New(time.UTC, src, hub, nil, nil)

	if err := s.RefreshKitchen(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(hub.topics) != 0 {
		t.Fatalf("expected no broadcast on failure")
	}
}

func TestImportRemoteFeedsService(t *testing.T) {
	src := &sourceStub{}
	s := New(time.UTC, src, &broadcastStub{}, fetcherStub{orders: []domain.Order{{ID: "ORD-100"}}}, nil)

	if err := s.ImportRemote(context.Background()); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(src.imported) != 1 || src.imported[0].ID != "ORD-100" {
		t.Fatalf("unexpected imports: %+v", src.imported)
	}
}

func TestStartRunsJobsOnInterval(t *testing.T) {
	src := &sourceStub{}
	s := New(time.UTC, src, &broadcastStub{}, nil, nil)
	if err := s.Start(Intervals{Kitchen: 20 * time.Millisecond}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for src.boardCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if src.boardCount() < 2 {
		t.Fatalf("expected kitchen job to run repeatedly, ran %d times", src.boardCount())
	}
}
