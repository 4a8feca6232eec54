// Package scheduler runs the periodic refresh jobs that keep live screens
// and delivery stats current.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/feed"
	"restodesk/backend/internal/metrics"
	"restodesk/backend/internal/service"
)

const (
	JobKitchenRefresh = "kitchen_refresh"
	JobSellerHome     = "seller_home"
	JobDeliveryStats  = "delivery_stats"
	JobRemoteImport   = "remote_import"
)

// Source is the slice of the service the jobs read from.
type Source interface {
	KitchenBoard(ctx context.Context) (service.KitchenBoard, error)
	SellerHome(ctx context.Context) (service.SellerHome, error)
	RebuildAllDeliveryStats(ctx context.Context) ([]domain.DeliveryStats, error)
	ImportOrders(ctx context.Context, orders []domain.Order) (int, error)
}

type Broadcaster interface {
	Broadcast(topic string, payload any) int
}

// OrderFetcher pulls orders from the upstream API.
type OrderFetcher interface {
	FetchOrders(ctx context.Context) ([]domain.Order, error)
}

type Intervals struct {
	Kitchen       time.Duration
	SellerHome    time.Duration
	DeliveryStats time.Duration
	// RemoteImport of zero disables the upstream pull.
	RemoteImport time.Duration
}

type Scheduler struct {
	cron    *gocron.Scheduler
	source  Source
	feed    Broadcaster
	remote  OrderFetcher
	metrics *metrics.Metrics
	timeout time.Duration
}

func New(loc *time.Location, source Source, feed Broadcaster, remote OrderFetcher, m *metrics.Metrics) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    gocron.NewScheduler(loc),
		source:  source,
		feed:    feed,
		remote:  remote,
		metrics: m,
		timeout: 15 * time.Second,
	}
}

// Start registers the jobs and runs them in the background. Each job fires
// once immediately and then on its interval; a run still in progress is
// never overlapped by the next one.
func (s *Scheduler) Start(iv Intervals) error {
	jobs := []struct {
		name  string
		every time.Duration
		run   func(context.Context) error
	}{
		{JobKitchenRefresh, iv.Kitchen, s.RefreshKitchen},
		{JobSellerHome, iv.SellerHome, s.RefreshSellerHome},
		{JobDeliveryStats, iv.DeliveryStats, s.RebuildDeliveryStats},
	}
	if iv.RemoteImport > 0 && s.remote != nil {
		jobs = append(jobs, struct {
			name  string
			every time.Duration
			run   func(context.Context) error
		}{JobRemoteImport, iv.RemoteImport, s.ImportRemote})
	}

	for _, job := range jobs {
		if job.every <= 0 {
			continue
		}
		name, run := job.name, job.run
		_, err := s.cron.Every(job.every).Tag(name).SingletonMode().Do(func() { s.runJob(name, run) })
		if err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	s.cron.StartAsync()
	log.Printf("[scheduler] started %d jobs", len(s.cron.Jobs()))
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runJob(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := run(ctx)
	s.metrics.JobRun(name, err)
	if err != nil {
		log.Printf("[scheduler] WARN: job %s failed: %v", name, err)
	}
}

func (s *Scheduler) RefreshKitchen(ctx context.Context) error {
	board, err := s.source.KitchenBoard(ctx)
	if err != nil {
		return err
	}
	s.feed.Broadcast(feed.TopicKitchen, board)
	return nil
}

func (s *Scheduler) RefreshSellerHome(ctx context.Context) error {
	home, err := s.source.SellerHome(ctx)
	if err != nil {
		return err
	}
	s.feed.Broadcast(feed.TopicSeller, home)
	return nil
}

func (s *Scheduler) RebuildDeliveryStats(ctx context.Context) error {
	_, err := s.source.RebuildAllDeliveryStats(ctx)
	return err
}

func (s *Scheduler) ImportRemote(ctx context.Context) error {
	orders, err := s.remote.FetchOrders(ctx)
	if err != nil {
		return err
	}
	_, err = s.source.ImportOrders(ctx, orders)
	return err
}
