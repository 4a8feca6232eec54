package service

import (
	"context"
	"fmt"
	"strings"

	"restodesk/backend/internal/domain"
)

var paymentMethods = []string{"cash", "card", "qris", "transfer"}

// maxTransactionAttempts bounds the search for an unused transaction id.
const maxTransactionAttempts = 5

func (s *Service) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	return listAll(ctx, s, s.payments)
}

func (s *Service) PaymentsForOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	payments, err := listAll(ctx, s, s.payments)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0)
	for _, p := range payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) AddPayment(ctx context.Context, req domain.PaymentCreateRequest) (domain.Payment, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if req.OrderID == "" {
		return domain.Payment{}, invalid("order id is required")
	}
	if req.AmountCents <= 0 {
		return domain.Payment{}, invalid("amount must be positive")
	}
	if !oneOf(req.Method, paymentMethods...) {
		return domain.Payment{}, invalid("unsupported payment method %q", req.Method)
	}

	txn, err := s.transactionID(ctx)
	if err != nil {
		return domain.Payment{}, err
	}
	id, err := s.nextID(ctx, paymentIDs)
	if err != nil {
		return domain.Payment{}, err
	}
	payment := domain.Payment{
		ID:            id,
		OrderID:       req.OrderID,
		AmountCents:   req.AmountCents,
		Method:        req.Method,
		TransactionID: txn,
		CreatedAt:     s.now(),
	}
	if err := save(ctx, s, s.payments, id, payment); err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}

// transactionID draws TXN ids from the counter until one is not already on
// a stored payment. Collisions only happen when payments were written
// around the counter, for example by an import.
func (s *Service) transactionID(ctx context.Context) (string, error) {
	payments, err := listAll(ctx, s, s.payments)
	if err != nil {
		return "", err
	}
	used := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		used[p.TransactionID] = struct{}{}
	}

	for attempt := 0; attempt < maxTransactionAttempts; attempt++ {
		txn, err := s.nextID(ctx, transactionIDs)
		if err != nil {
			return "", err
		}
		if _, taken := used[txn]; !taken {
			return txn, nil
		}
	}
	return "", fmt.Errorf("no free transaction id after %d attempts", maxTransactionAttempts)
}
