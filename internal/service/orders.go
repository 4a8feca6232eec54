package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/notify"
	"restodesk/backend/internal/xid"
)

const (
	DeliveryTypeDineIn   = "dine_in"
	DeliveryTypeTakeaway = "takeaway"
	DeliveryTypeDelivery = "delivery"
)

// nextStatus lists the forward move allowed from each status. Cancellation
// is handled separately.
var nextStatus = map[string]string{
	domain.OrderStatusPending:   domain.OrderStatusPreparing,
	domain.OrderStatusPreparing: domain.OrderStatusReady,
	domain.OrderStatusReady:     domain.OrderStatusCompleted,
}

func terminal(status string) bool {
	return status == domain.OrderStatusCompleted || status == domain.OrderStatusCancelled
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return listAll(ctx, s, s.orders)
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return load(ctx, s, s.orders, id)
}

// ActiveOrders returns orders the kitchen still has to act on.
func (s *Service) ActiveOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := listAll(ctx, s, s.orders)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !terminal(o.Status) {
			active = append(active, o)
		}
	}
	return active, nil
}

func (s *Service) AddOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	req.Customer = strings.TrimSpace(req.Customer)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Customer == "" && req.Phone == "" {
		return domain.Order{}, invalid("customer name or phone is required")
	}
	if len(req.Products) == 0 {
		return domain.Order{}, invalid("order needs at least one product")
	}
	if req.DeliveryType == "" {
		req.DeliveryType = DeliveryTypeDineIn
	}
	if !oneOf(req.DeliveryType, DeliveryTypeDineIn, DeliveryTypeTakeaway, DeliveryTypeDelivery) {
		return domain.Order{}, invalid("unknown delivery type %q", req.DeliveryType)
	}
	total, err := orderTotal(req.Products)
	if err != nil {
		return domain.Order{}, err
	}

	id, err := s.nextID(ctx, orderIDs)
	if err != nil {
		return domain.Order{}, err
	}
	order := domain.Order{
		ID:           id,
		Customer:     req.Customer,
		Phone:        req.Phone,
		Products:     req.Products,
		TotalCents:   total,
		Status:       domain.OrderStatusPending,
		DeliveryType: req.DeliveryType,
		KitchenNotes: strings.TrimSpace(req.KitchenNotes),
		GeneralNotes: strings.TrimSpace(req.GeneralNotes),
		CreatedAt:    s.now(),
	}
	if err := save(ctx, s, s.orders, id, order); err != nil {
		return domain.Order{}, err
	}

	if _, _, err := s.FindOrCreateCustomer(ctx, req.Customer, req.Phone, order); err != nil {
		log.Printf("[service] WARN: failed to book order %s against customer: %v", order.ID, err)
	}

	s.metrics.OrderCreated()
	s.invalidateReports(ctx)
	s.publish(ctx, notify.Event{
		Kind:    notify.KindOrderCreated,
		OrderID: order.ID,
		Status:  order.Status,
		Message: fmt.Sprintf("new order %s for %s", order.ID, order.Customer),
	})
	return order, nil
}

func (s *Service) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) (domain.Order, error) {
	order, err := load(ctx, s, s.orders, id)
	if err != nil {
		return domain.Order{}, err
	}

	if v := trimmed(patch.Customer); v != nil {
		order.Customer = *v
	}
	if v := trimmed(patch.Phone); v != nil {
		order.Phone = *v
	}
	if patch.Products != nil {
		if len(*patch.Products) == 0 {
			return domain.Order{}, invalid("order needs at least one product")
		}
		total, err := orderTotal(*patch.Products)
		if err != nil {
			return domain.Order{}, err
		}
		order.Products = *patch.Products
		order.TotalCents = total
	}
	if v := trimmed(patch.DeliveryType); v != nil {
		if !oneOf(*v, DeliveryTypeDineIn, DeliveryTypeTakeaway, DeliveryTypeDelivery) {
			return domain.Order{}, invalid("unknown delivery type %q", *v)
		}
		order.DeliveryType = *v
	}
	if v := trimmed(patch.KitchenNotes); v != nil {
		order.KitchenNotes = *v
	}
	if v := trimmed(patch.GeneralNotes); v != nil {
		order.GeneralNotes = *v
	}

	changed := false
	if patch.Status != nil && *patch.Status != order.Status {
		if err := s.transition(&order, *patch.Status); err != nil {
			return domain.Order{}, err
		}
		changed = true
	}

	if err := save(ctx, s, s.orders, id, order); err != nil {
		return domain.Order{}, err
	}
	s.invalidateReports(ctx)
	if changed {
		s.announceStatus(ctx, order)
	}
	return order, nil
}

// SetOrderStatus moves an order along the kitchen workflow, stamping the
// time of each step.
func (s *Service) SetOrderStatus(ctx context.Context, id string, status string) (domain.Order, error) {
	return s.UpdateOrder(ctx, id, domain.OrderPatch{Status: &status})
}

func (s *Service) DeleteOrder(ctx context.Context, id string) ([]domain.Order, error) {
	remaining, err := remove(ctx, s, s.orders, id)
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return remaining, nil
}

func (s *Service) transition(order *domain.Order, status string) error {
	if !oneOf(status, domain.OrderStatusPending, domain.OrderStatusPreparing, domain.OrderStatusReady, domain.OrderStatusCompleted, domain.OrderStatusCancelled) {
		return invalid("unknown order status %q", status)
	}
	if terminal(order.Status) {
		return fmt.Errorf("%w: order %s is already %s", ErrInvalidTransition, order.ID, order.Status)
	}

	now := s.now()
	switch {
	case status == domain.OrderStatusCancelled:
		order.CancelledAt = &now
	case nextStatus[order.Status] == status:
		switch status {
		case domain.OrderStatusPreparing:
			order.PreparingAt = &now
		case domain.OrderStatusReady:
			order.ReadyAt = &now
		case domain.OrderStatusCompleted:
			order.CompletedAt = &now
			order.Delayed = s.delayed(*order, now)
		}
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}
	order.Status = status
	return nil
}

// delayed reports whether preparation, measured from the start of cooking
// (or from intake when the kitchen never marked it) until the order was
// ready, ran past the kitchen SLA.
func (s *Service) delayed(order domain.Order, completedAt time.Time) bool {
	start := order.CreatedAt
	if order.PreparingAt != nil {
		start = *order.PreparingAt
	}
	end := completedAt
	if order.ReadyAt != nil {
		end = *order.ReadyAt
	}
	if start.IsZero() {
		return false
	}
	return end.Sub(start) > s.kitchenSLA
}

func (s *Service) announceStatus(ctx context.Context, order domain.Order) {
	s.metrics.OrderStatus(order.Status)
	s.publish(ctx, notify.Event{
		Kind:    notify.KindOrderStatus,
		OrderID: order.ID,
		Status:  order.Status,
		Message: fmt.Sprintf("order %s is %s", order.ID, order.Status),
	})
}

// ImportOrders stores orders fetched from the remote order API. Orders that
// already exist locally are left alone; orders without an id get a fresh
// one. It returns how many orders were stored.
func (s *Service) ImportOrders(ctx context.Context, orders []domain.Order) (int, error) {
	imported := 0
	for _, o := range orders {
		if o.ID != "" {
			if _, err := s.orders.Load(ctx, o.ID); err == nil {
				continue
			}
		} else {
			id, err := s.nextID(ctx, orderIDs)
			if err != nil {
				return imported, err
			}
			o.ID = id
		}
		if o.Status == "" {
			o.Status = domain.OrderStatusPending
		}
		if o.TotalCents == 0 && len(o.Products) > 0 {
			if total, err := orderTotal(o.Products); err == nil {
				o.TotalCents = total
			}
		}
		if err := save(ctx, s, s.orders, o.ID, o); err != nil {
			return imported, err
		}
		if n, _, ok := xid.Suffix(o.ID, orderIDs.prefix); ok {
			if err := s.kv.Reserve(ctx, orderIDs.sequence, n); err != nil {
				s.observe(err)
				return imported, err
			}
		}
		imported++
	}
	if imported > 0 {
		s.invalidateReports(ctx)
		log.Printf("[service] imported %d remote orders", imported)
	}
	return imported, nil
}

func orderTotal(lines []domain.OrderLine) (int64, error) {
	var total int64
	for _, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" && strings.TrimSpace(line.Name) == "" {
			return 0, invalid("order line needs a product id or name")
		}
		if line.Quantity <= 0 {
			return 0, invalid("quantity must be positive for %s", line.ProductID)
		}
		if line.PriceCents < 0 {
			return 0, invalid("price cannot be negative for %s", line.ProductID)
		}
		total += int64(line.Quantity) * line.PriceCents
	}
	return total, nil
}
