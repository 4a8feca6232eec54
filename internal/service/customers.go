package service

import (
	"context"
	"log"
	"strings"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/xid"
)

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return listAll(ctx, s, s.customers)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return load(ctx, s, s.customers, id)
}

func (s *Service) AddCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return domain.Customer{}, invalid("customer name is required")
	}

	id, err := s.nextID(ctx, customerIDs)
	if err != nil {
		return domain.Customer{}, err
	}
	customer := domain.Customer{
		ID:        id,
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: s.now(),
	}
	if err := save(ctx, s, s.customers, id, customer); err != nil {
		return domain.Customer{}, err
	}
	s.invalidateReports(ctx)
	return customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) (domain.Customer, error) {
	customer, err := load(ctx, s, s.customers, id)
	if err != nil {
		return domain.Customer{}, err
	}

	if name := trimmed(patch.Name); name != nil {
		if *name == "" {
			return domain.Customer{}, invalid("customer name cannot be empty")
		}
		customer.Name = *name
	}
	if phone := trimmed(patch.Phone); phone != nil {
		customer.Phone = *phone
	}
	if address := trimmed(patch.Address); address != nil {
		customer.Address = *address
	}

	if err := save(ctx, s, s.customers, id, customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) ([]domain.Customer, error) {
	remaining, err := remove(ctx, s, s.customers, id)
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return remaining, nil
}

// FindOrCreateCustomer books order against the customer whose phone matches
// exactly or whose name matches case-insensitively, creating one when
// neither does. An empty phone never matches.
func (s *Service) FindOrCreateCustomer(ctx context.Context, name string, phone string, order domain.Order) (domain.Customer, bool, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" && phone == "" {
		return domain.Customer{}, false, invalid("customer name or phone is required")
	}

	customers, err := listAll(ctx, s, s.customers)
	if err != nil {
		return domain.Customer{}, false, err
	}

	for _, c := range customers {
		phoneMatch := phone != "" && c.Phone == phone
		nameMatch := name != "" && strings.EqualFold(strings.TrimSpace(c.Name), name)
		if !phoneMatch && !nameMatch {
			continue
		}
		c.TotalOrders++
		c.TotalSpentCents += order.TotalCents
		c.LastOrder = order.ID
		if err := save(ctx, s, s.customers, c.ID, c); err != nil {
			return domain.Customer{}, false, err
		}
		return c, false, nil
	}

	id, err := s.nextID(ctx, customerIDs)
	if err != nil {
		return domain.Customer{}, false, err
	}
	if name == "" {
		name = phone
	}
	created := domain.Customer{
		ID:              id,
		Name:            name,
		Phone:           phone,
		TotalOrders:     1,
		TotalSpentCents: order.TotalCents,
		LastOrder:       order.ID,
		CreatedAt:       s.now(),
	}
	if err := save(ctx, s, s.customers, id, created); err != nil {
		return domain.Customer{}, false, err
	}
	return created, true, nil
}

// ImportCustomers stores upstream customers whose id is not already known.
// Customers without an id are numbered locally, and the sequence is moved
// past any imported suffix.
func (s *Service) ImportCustomers(ctx context.Context, customers []domain.Customer) (int, error) {
	imported := 0
	for _, c := range customers {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if c.ID != "" {
			if _, err := s.customers.Load(ctx, c.ID); err == nil {
				continue
			}
		} else {
			id, err := s.nextID(ctx, customerIDs)
			if err != nil {
				return imported, err
			}
			c.ID = id
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now()
		}
		if err := save(ctx, s, s.customers, c.ID, c); err != nil {
			return imported, err
		}
		if n, _, ok := xid.Suffix(c.ID, customerIDs.prefix); ok && n >= customerIDs.floor {
			if err := s.kv.Reserve(ctx, customerIDs.sequence, n-customerIDs.floor+1); err != nil {
				s.observe(err)
				return imported, err
			}
		}
		imported++
	}
	if imported > 0 {
		s.invalidateReports(ctx)
		log.Printf("[service] imported %d remote customers", imported)
	}
	return imported, nil
}
