package service

import (
	"context"
	"fmt"
	"strings"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/notify"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return listAll(ctx, s, s.products)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return load(ctx, s, s.products, id)
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return domain.Product{}, invalid("product name is required")
	}
	if req.Stock < 0 || req.MinStock < 0 {
		return domain.Product{}, invalid("stock cannot be negative")
	}
	if req.PriceCents < 0 {
		return domain.Product{}, invalid("price cannot be negative")
	}

	id, err := s.nextID(ctx, productIDs)
	if err != nil {
		return domain.Product{}, err
	}
	product := domain.Product{
		ID:         id,
		Name:       req.Name,
		Stock:      req.Stock,
		MinStock:   req.MinStock,
		PriceCents: req.PriceCents,
		Category:   req.Category,
		CreatedAt:  s.now(),
	}
	if err := save(ctx, s, s.products, id, product); err != nil {
		return domain.Product{}, err
	}
	s.warnLowStock(ctx, product)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	product, err := load(ctx, s, s.products, id)
	if err != nil {
		return domain.Product{}, err
	}
	wasLow := product.Stock <= product.MinStock

	if name := trimmed(patch.Name); name != nil {
		if *name == "" {
			return domain.Product{}, invalid("product name cannot be empty")
		}
		product.Name = *name
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return domain.Product{}, invalid("stock cannot be negative")
		}
		product.Stock = *patch.Stock
	}
	if patch.MinStock != nil {
		if *patch.MinStock < 0 {
			return domain.Product{}, invalid("min stock cannot be negative")
		}
		product.MinStock = *patch.MinStock
	}
	if patch.PriceCents != nil {
		if *patch.PriceCents < 0 {
			return domain.Product{}, invalid("price cannot be negative")
		}
		product.PriceCents = *patch.PriceCents
	}
	if category := trimmed(patch.Category); category != nil {
		product.Category = *category
	}

	if err := save(ctx, s, s.products, id, product); err != nil {
		return domain.Product{}, err
	}
	if !wasLow {
		s.warnLowStock(ctx, product)
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) ([]domain.Product, error) {
	return remove(ctx, s, s.products, id)
}

// LowStock lists products at or below their reorder threshold.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := listAll(ctx, s, s.products)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock <= p.MinStock {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *Service) warnLowStock(ctx context.Context, p domain.Product) {
	if p.Stock > p.MinStock {
		return
	}
	s.publish(ctx, notify.Event{
		Kind:    notify.KindLowStock,
		Message: fmt.Sprintf("%s is low on stock (%d left, minimum %d)", p.Name, p.Stock, p.MinStock),
	})
}
