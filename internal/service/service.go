package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"restodesk/backend/internal/cache"
	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/metrics"
	"restodesk/backend/internal/notify"
	"restodesk/backend/internal/store"
	"restodesk/backend/internal/xid"
)

var (
	ErrInvalid           = errors.New("invalid request")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// idScheme describes how a collection numbers its records: the counter
// named sequence yields n, and the id is prefix-(n+floor-1) padded to width.
type idScheme struct {
	sequence string
	prefix   string
	width    int
	floor    int64
}

var (
	orderIDs       = idScheme{sequence: "orders", prefix: "ORD", width: 3, floor: 1}
	customerIDs    = idScheme{sequence: "customers", prefix: "CUST", width: 0, floor: 3}
	productIDs     = idScheme{sequence: "products", prefix: "PRD", width: 3, floor: 1}
	returnIDs      = idScheme{sequence: "returns", prefix: "RTN", width: 3, floor: 1}
	purchaseIDs    = idScheme{sequence: "purchase_orders", prefix: "PO", width: 3, floor: 1}
	paymentIDs     = idScheme{sequence: "payments", prefix: "PAY", width: 3, floor: 1}
	transactionIDs = idScheme{sequence: "transactions", prefix: "TXN", width: 3, floor: 1}
)

type Options struct {
	// KitchenSLA is the preparation time after which a completed order is
	// marked delayed.
	KitchenSLA time.Duration
	// DeliverySLA is the pickup-to-dropoff time counted as on time.
	DeliverySLA time.Duration
	ReportTTL   time.Duration
	Location    *time.Location
	Notifier    notify.Notifier
	Reports     cache.ReportCache
	Metrics     *metrics.Metrics
	Clock       func() time.Time
}

type Service struct {
	kv             store.KV
	orders         *store.Collection[domain.Order]
	customers      *store.Collection[domain.Customer]
	products       *store.Collection[domain.Product]
	returns        *store.Collection[domain.Return]
	purchaseOrders *store.Collection[domain.PurchaseOrder]
	payments       *store.Collection[domain.Payment]
	drafts         *store.Collection[domain.FormDraft]
	actions        *store.Collection[domain.DeliveryAction]
	stats          *store.Collection[domain.DeliveryStats]
	locations      *store.Collection[domain.DriverLocation]

	kitchenSLA  time.Duration
	deliverySLA time.Duration
	reportTTL   time.Duration
	location    *time.Location
	notifier    notify.Notifier
	reports     cache.ReportCache
	metrics     *metrics.Metrics
	clock       func() time.Time
}

func New(kv store.KV, opts Options) *Service {
	if opts.KitchenSLA <= 0 {
		opts.KitchenSLA = 20 * time.Minute
	}
	if opts.DeliverySLA <= 0 {
		opts.DeliverySLA = 45 * time.Minute
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = 15 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}
	if opts.Reports == nil {
		opts.Reports = cache.NoopReportCache{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Service{
		kv:             kv,
		orders:         store.NewCollection[domain.Order](kv, "orders"),
		customers:      store.NewCollection[domain.Customer](kv, "customers"),
		products:       store.NewCollection[domain.Product](kv, "products"),
		returns:        store.NewCollection[domain.Return](kv, "returns"),
		purchaseOrders: store.NewCollection[domain.PurchaseOrder](kv, "purchase_orders"),
		payments:       store.NewCollection[domain.Payment](kv, "payments"),
		drafts:         store.NewCollection[domain.FormDraft](kv, "form_drafts"),
		actions:        store.NewCollection[domain.DeliveryAction](kv, "delivery_actions"),
		stats:          store.NewCollection[domain.DeliveryStats](kv, "delivery_stats"),
		locations:      store.NewCollection[domain.DriverLocation](kv, "driver_locations"),
		kitchenSLA:     opts.KitchenSLA,
		deliverySLA:    opts.DeliverySLA,
		reportTTL:      opts.ReportTTL,
		location:       opts.Location,
		notifier:       opts.Notifier,
		reports:        opts.Reports,
		metrics:        opts.Metrics,
		clock:          opts.Clock,
	}
}

// Bootstrap aligns every id counter with the records already stored and
// runs the return id migration. It is safe to call on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := s.MigrateReturnIDs(ctx); err != nil {
		return fmt.Errorf("migrate return ids: %w", err)
	}

	if err := reserveFrom(ctx, s, s.orders, orderIDs, func(o domain.Order) string { return o.ID }); err != nil {
		return err
	}
	if err := reserveFrom(ctx, s, s.customers, customerIDs, func(c domain.Customer) string { return c.ID }); err != nil {
		return err
	}
	if err := reserveFrom(ctx, s, s.products, productIDs, func(p domain.Product) string { return p.ID }); err != nil {
		return err
	}
	if err := reserveFrom(ctx, s, s.returns, returnIDs, func(r domain.Return) string { return r.ID }); err != nil {
		return err
	}
	if err := reserveFrom(ctx, s, s.purchaseOrders, purchaseIDs, func(p domain.PurchaseOrder) string { return p.ID }); err != nil {
		return err
	}
	if err := reserveFrom(ctx, s, s.payments, paymentIDs, func(p domain.Payment) string { return p.ID }); err != nil {
		return err
	}
	return reserveFrom(ctx, s, s.payments, transactionIDs, func(p domain.Payment) string { return p.TransactionID })
}

func reserveFrom[T any](ctx context.Context, s *Service, coll *store.Collection[T], scheme idScheme, id func(T) string) error {
	records, err := listAll(ctx, s, coll)
	if err != nil {
		return err
	}
	var highest int64
	for _, rec := range records {
		if n, _, ok := xid.Suffix(id(rec), scheme.prefix); ok && n > highest {
			highest = n
		}
	}
	if highest < scheme.floor {
		return nil
	}
	if err := s.kv.Reserve(ctx, scheme.sequence, highest-scheme.floor+1); err != nil {
		s.observe(err)
		return fmt.Errorf("reserve %s: %w", scheme.sequence, err)
	}
	return nil
}

func (s *Service) nextID(ctx context.Context, scheme idScheme) (string, error) {
	n, err := s.kv.Next(ctx, scheme.sequence)
	if err != nil {
		s.observe(err)
		return "", err
	}
	return xid.Sequential(scheme.prefix, n+scheme.floor-1, scheme.width), nil
}

// listAll lists a collection. Corrupt records are logged and skipped so one
// bad entry does not hide the rest; other failures propagate.
func listAll[T any](ctx context.Context, s *Service, coll *store.Collection[T]) ([]T, error) {
	records, err := coll.All(ctx)
	if err != nil {
		s.observe(err)
		if errors.Is(err, store.ErrCorrupt) {
			log.Printf("[service] WARN: skipping unreadable records: %v", err)
			return records, nil
		}
		return nil, err
	}
	return records, nil
}

func load[T any](ctx context.Context, s *Service, coll *store.Collection[T], id string) (T, error) {
	val, err := coll.Load(ctx, id)
	if err != nil {
		s.observe(err)
	}
	return val, err
}

func save[T any](ctx context.Context, s *Service, coll *store.Collection[T], id string, val T) error {
	if err := coll.Save(ctx, id, val); err != nil {
		s.observe(err)
		return err
	}
	return nil
}

// remove deletes id and returns what is left of the collection in order.
func remove[T any](ctx context.Context, s *Service, coll *store.Collection[T], id string) ([]T, error) {
	if err := coll.Remove(ctx, id); err != nil {
		s.observe(err)
		return nil, err
	}
	return listAll(ctx, s, coll)
}

func (s *Service) now() time.Time {
	return s.clock().In(s.location)
}

func (s *Service) observe(err error) {
	if kind := store.Kind(err); kind != "" && kind != "not_found" {
		s.metrics.StorageError(kind)
	}
}

func (s *Service) publish(ctx context.Context, event notify.Event) {
	if event.At.IsZero() {
		event.At = s.now()
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("[service] WARN: notify %s failed: %v", event.Kind, err)
	}
}

// invalidateReports drops cached reports after a write that feeds them.
func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: report cache invalidate failed: %v", err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}
