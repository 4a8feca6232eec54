package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restodesk/backend/internal/autosave"
	"restodesk/backend/internal/cache"
	"restodesk/backend/internal/config"
	"restodesk/backend/internal/feed"
	"restodesk/backend/internal/httpapi"
	"restodesk/backend/internal/metrics"
	"restodesk/backend/internal/notify"
	"restodesk/backend/internal/remote"
	"restodesk/backend/internal/scheduler"
	"restodesk/backend/internal/service"
	"restodesk/backend/internal/store"
	"restodesk/backend/internal/store/memory"
	pgstore "restodesk/backend/internal/store/postgres"
	redisstore "restodesk/backend/internal/store/redis"
	sqlitestore "restodesk/backend/internal/store/sqlite"
)

// backend is the opened store plus whatever else came up with it.
type backend struct {
	kv      store.KV
	reports cache.ReportCache
	closers []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("store unavailable: %v", err)
	}
	closers := be.closers

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		broker, err := notify.DialAMQP(cfg.AMQPURL)
		if err != nil {
			log.Printf("amqp unavailable (%v), notifications go to the log only", err)
		} else {
			notifier = notify.Multi{notify.LogNotifier{}, broker}
			closers = append(closers, broker.Close)
			log.Println("notifier: log + amqp")
		}
	}

	m := metrics.New()
	loc := cfg.Location()
	svc := service.New(be.kv, service.Options{
		KitchenSLA:  cfg.KitchenSLA(),
		DeliverySLA: cfg.DeliverySLA(),
		ReportTTL:   cfg.ReportTTL(),
		Location:    loc,
		Notifier:    notifier,
		Reports:     be.reports,
		Metrics:     m,
	})
	if err := svc.Bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	hub := feed.NewHub(cfg.AllowedOrigin)
	drafts := autosave.New(cfg.AutosaveDelay(), func(ctx context.Context, form string, snapshot map[string]any) error {
		_, err := svc.SaveDraft(ctx, form, snapshot)
		return err
	})

	var upstream *remote.Client
	var fetcher scheduler.OrderFetcher
	if cfg.RemoteAPIURL != "" {
		upstream = remote.NewClient(cfg.RemoteAPIURL, 10*time.Second)
		fetcher = upstream
		log.Printf("remote order api: %s", cfg.RemoteAPIURL)
	}

	jobs := scheduler.New(loc, svc, hub, fetcher, m)
	if err := jobs.Start(intervals(cfg)); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Service:       svc,
		Autosave:      drafts,
		Feed:          hub,
		Remote:        upstream,
		Metrics:       m,
		AllowedOrigin: cfg.AllowedOrigin,
		Location:      loc,
	})

	// WriteTimeout stays zero so the websocket feeds are not cut off.
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("restaurant backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	jobs.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	hub.Close()

	// Pending autosaves are written before the store goes away.
	if err := drafts.FlushAll(shutdownCtx); err != nil {
		log.Printf("draft flush error: %v", err)
	}
	drafts.Stop()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	be := backend{reports: cache.NoopReportCache{}}

	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return be, fmt.Errorf("postgres: %w", err)
		}
		be.kv = pg
		be.closers = append(be.closers, pg.Close)
		log.Println("store: postgres")
	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return be, fmt.Errorf("sqlite: %w", err)
		}
		be.kv = db
		be.closers = append(be.closers, db.Close)
		log.Printf("store: sqlite (%s)", cfg.SQLitePath)
	case config.BackendRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return be, fmt.Errorf("redis: %w", err)
		}
		be.kv = rs
		be.closers = append(be.closers, rs.Close)
		log.Println("store: redis")
	default:
		be.kv = memoryStore(cfg)
		log.Println("store: in-memory")
	}

	// The report cache only needs redis; it does not need redis as the store.
	if cfg.RedisAddr != "" {
		var rs *redisstore.Store
		if existing, ok := be.kv.(*redisstore.Store); ok {
			rs = existing
		} else {
			rs = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
			if err := rs.Ping(ctx); err != nil {
				log.Printf("redis unavailable (%v), using noop report cache", err)
				_ = rs.Close()
				return be, nil
			}
			be.closers = append(be.closers, rs.Close)
		}
		be.reports = cache.NewRedisReportCache(rs.Client(), cfg.RedisPrefix)
		log.Println("report cache: redis")
	} else {
		log.Println("report cache: noop")
	}
	return be, nil
}

func memoryStore(cfg config.Config) *memory.Store {
	if !cfg.SeedDemoData {
		return memory.NewWithQuota(cfg.StoreQuotaBytes)
	}
	s := memory.NewSeeded()
	s.SetQuota(cfg.StoreQuotaBytes)
	return s
}

func intervals(cfg config.Config) scheduler.Intervals {
	return scheduler.Intervals{
		Kitchen:       time.Duration(cfg.KitchenPollSeconds) * time.Second,
		SellerHome:    time.Duration(cfg.SellerPollSeconds) * time.Second,
		DeliveryStats: time.Duration(cfg.StatsRebuildMinutes) * time.Minute,
		RemoteImport:  time.Duration(cfg.RemotePollMinutes) * time.Minute,
	}
}
