package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/store"
)

var poStatuses = []string{
	domain.POStatusDraft,
	domain.POStatusOrdered,
	domain.POStatusReceived,
	domain.POStatusCancelled,
}

func (s *Service) ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error) {
	return listAll(ctx, s, s.purchaseOrders)
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	return load(ctx, s, s.purchaseOrders, id)
}

func (s *Service) AddPurchaseOrder(ctx context.Context, req domain.PurchaseOrderCreateRequest) (domain.PurchaseOrder, error) {
	req.Supplier = strings.TrimSpace(req.Supplier)
	if req.Supplier == "" {
		return domain.PurchaseOrder{}, invalid("supplier is required")
	}
	total, err := purchaseTotal(req.Items)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	id, err := s.nextID(ctx, purchaseIDs)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	orderDate := s.now()
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		orderDate = *req.OrderDate
	}
	po := domain.PurchaseOrder{
		ID:         id,
		PONumber:   id,
		Supplier:   req.Supplier,
		Status:     domain.POStatusDraft,
		Items:      req.Items,
		TotalCents: total,
		OrderDate:  orderDate,
	}
	if err := save(ctx, s, s.purchaseOrders, id, po); err != nil {
		return domain.PurchaseOrder{}, err
	}
	return po, nil
}

// UpdatePurchaseOrder merges patch into the order. Moving it to received
// adds the item quantities to product stock.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, id string, patch domain.PurchaseOrderPatch) (domain.PurchaseOrder, error) {
	po, err := load(ctx, s, s.purchaseOrders, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	if po.Status == domain.POStatusReceived || po.Status == domain.POStatusCancelled {
		return domain.PurchaseOrder{}, invalid("purchase order %s is already %s", po.ID, po.Status)
	}

	if v := trimmed(patch.Supplier); v != nil {
		if *v == "" {
			return domain.PurchaseOrder{}, invalid("supplier cannot be empty")
		}
		po.Supplier = *v
	}
	if patch.Items != nil {
		total, err := purchaseTotal(*patch.Items)
		if err != nil {
			return domain.PurchaseOrder{}, err
		}
		po.Items = *patch.Items
		po.TotalCents = total
	}
	receiving := false
	if patch.Status != nil && *patch.Status != po.Status {
		if !oneOf(*patch.Status, poStatuses...) {
			return domain.PurchaseOrder{}, invalid("unknown purchase order status %q", *patch.Status)
		}
		receiving = *patch.Status == domain.POStatusReceived
		po.Status = *patch.Status
	}

	undo := func() {}
	if receiving {
		if undo, err = s.receiveStock(ctx, po.Items); err != nil {
			return domain.PurchaseOrder{}, err
		}
	}
	if err := save(ctx, s, s.purchaseOrders, id, po); err != nil {
		undo()
		return domain.PurchaseOrder{}, err
	}
	return po, nil
}

func (s *Service) DeletePurchaseOrder(ctx context.Context, id string) ([]domain.PurchaseOrder, error) {
	return remove(ctx, s, s.purchaseOrders, id)
}

// receiveStock adds every item to its product's stock. All products are
// loaded before anything is written; a failed write puts back the stock
// already added. The returned func undoes a completed intake.
func (s *Service) receiveStock(ctx context.Context, items []domain.PurchaseOrderItem) (func(), error) {
	adds := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := adds[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		adds[item.ProductID] += item.Quantity
	}

	before := make([]domain.Product, 0, len(order))
	for _, productID := range order {
		product, err := load(ctx, s, s.products, productID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("unknown product %s", productID)
			}
			return nil, err
		}
		before = append(before, product)
	}

	restore := func(products []domain.Product) {
		for _, p := range products {
			if err := s.products.Save(ctx, p.ID, p); err != nil {
				log.Printf("[service] ERROR: failed to restore stock for %s: %v", p.ID, err)
			}
		}
	}
	for i, product := range before {
		product.Stock += adds[product.ID]
		if err := save(ctx, s, s.products, product.ID, product); err != nil {
			restore(before[:i])
			return nil, err
		}
	}
	return func() { restore(before) }, nil
}

func purchaseTotal(items []domain.PurchaseOrderItem) (int64, error) {
	var total int64
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return 0, invalid("purchase order item needs a product id")
		}
		if item.Quantity <= 0 {
			return 0, invalid("quantity must be positive for %s", item.ProductID)
		}
		if item.CostCents < 0 {
			return 0, invalid("cost cannot be negative for %s", item.ProductID)
		}
		total += int64(item.Quantity) * item.CostCents
	}
	return total, nil
}
