package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/report"
)

// ReportQuery selects the report window. From and To are only read for
// the custom period.
type ReportQuery struct {
	Period report.Period
	From   time.Time
	To     time.Time
}

func (s *Service) window(q ReportQuery) (report.Window, error) {
	w, err := report.Resolve(q.Period, s.now(), q.From, q.To)
	if err != nil {
		if errors.Is(err, report.ErrInvalidWindow) {
			return report.Window{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return report.Window{}, err
	}
	return w, nil
}

func reportKey(kind string, w report.Window) string {
	return fmt.Sprintf("%s:%s:%d:%d", kind, w.Period, w.From.Unix(), w.To.Unix())
}

// cached serves key from the report cache or builds and stores it. Cache
// failures are logged and the report is built fresh.
func cached[T any](ctx context.Context, s *Service, key string, build func() (T, error)) (T, error) {
	var out T
	gen, hit, err := s.reports.Get(ctx, key, &out)
	if err != nil {
		log.Printf("[service] WARN: report cache read failed key=%s: %v", key, err)
	}
	if hit {
		return out, nil
	}

	out, err = build()
	if err != nil {
		return out, err
	}
	if err := s.reports.Set(ctx, gen, key, out, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache write failed key=%s: %v", key, err)
	}
	return out, nil
}

func (s *Service) DeliveryReport(ctx context.Context, q ReportQuery) (report.DeliveryReport, error) {
	w, err := s.window(q)
	if err != nil {
		return report.DeliveryReport{}, err
	}
	return cached(ctx, s, reportKey("delivery", w), func() (report.DeliveryReport, error) {
		orders, err := listAll(ctx, s, s.orders)
		if err != nil {
			return report.DeliveryReport{}, err
		}
		actions, err := listAll(ctx, s, s.actions)
		if err != nil {
			return report.DeliveryReport{}, err
		}
		return report.Delivery(orders, actions, w, s.deliverySLA), nil
	})
}

func (s *Service) KitchenReport(ctx context.Context, q ReportQuery) (report.KitchenReport, error) {
	w, err := s.window(q)
	if err != nil {
		return report.KitchenReport{}, err
	}
	return cached(ctx, s, reportKey("kitchen", w), func() (report.KitchenReport, error) {
		orders, err := listAll(ctx, s, s.orders)
		if err != nil {
			return report.KitchenReport{}, err
		}
		return report.Kitchen(orders, w), nil
	})
}

func (s *Service) ManagerReport(ctx context.Context, q ReportQuery) (report.ManagerReport, error) {
	w, err := s.window(q)
	if err != nil {
		return report.ManagerReport{}, err
	}
	return cached(ctx, s, reportKey("manager", w), func() (report.ManagerReport, error) {
		orders, err := listAll(ctx, s, s.orders)
		if err != nil {
			return report.ManagerReport{}, err
		}
		returns, err := s.ListReturns(ctx)
		if err != nil {
			return report.ManagerReport{}, err
		}
		customers, err := listAll(ctx, s, s.customers)
		if err != nil {
			return report.ManagerReport{}, err
		}
		return report.Manager(orders, returns, customers, w), nil
	})
}

// ExportKitchenOrders wraps every order in the download envelope.
func (s *Service) ExportKitchenOrders(ctx context.Context) (domain.KitchenExport, error) {
	orders, err := listAll(ctx, s, s.orders)
	if err != nil {
		return domain.KitchenExport{}, err
	}
	return domain.KitchenExport{ExportedAt: s.now(), Orders: orders}, nil
}

// KitchenBoard is the snapshot pushed to kitchen screens.
type KitchenBoard struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Orders      []domain.Order `json:"orders"`
	Counts      map[string]int `json:"counts"`
}

func (s *Service) KitchenBoard(ctx context.Context) (KitchenBoard, error) {
	active, err := s.ActiveOrders(ctx)
	if err != nil {
		return KitchenBoard{}, err
	}
	counts := map[string]int{
		domain.OrderStatusPending:   0,
		domain.OrderStatusPreparing: 0,
		domain.OrderStatusReady:     0,
	}
	for _, o := range active {
		counts[o.Status]++
	}
	return KitchenBoard{GeneratedAt: s.now(), Orders: active, Counts: counts}, nil
}

// SellerHome is the summary shown on the seller landing screen.
type SellerHome struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Today        report.ManagerReport `json:"today"`
	LowStock     []domain.Product     `json:"low_stock"`
	ActiveOrders int                  `json:"active_orders"`
}

func (s *Service) SellerHome(ctx context.Context) (SellerHome, error) {
	today, err := s.ManagerReport(ctx, ReportQuery{Period: report.PeriodToday})
	if err != nil {
		return SellerHome{}, err
	}
	low, err := s.LowStock(ctx)
	if err != nil {
		return SellerHome{}, err
	}
	active, err := s.ActiveOrders(ctx)
	if err != nil {
		return SellerHome{}, err
	}
	return SellerHome{GeneratedAt: s.now(), Today: today, LowStock: low, ActiveOrders: len(active)}, nil
}
