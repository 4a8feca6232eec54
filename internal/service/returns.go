package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/store"
	"restodesk/backend/internal/xid"
)

// legacyDigits is the suffix length past which a return id is taken to be
// an old millisecond timestamp rather than a sequence number.
const legacyDigits = 10

var returnReasons = []string{
	domain.ReturnReasonDamaged,
	domain.ReturnReasonWrongItem,
	domain.ReturnReasonExpired,
	domain.ReturnReasonCustomerRequest,
	domain.ReturnReasonOther,
}

var returnStatuses = []string{
	domain.ReturnStatusPending,
	domain.ReturnStatusApproved,
	domain.ReturnStatusRejected,
	domain.ReturnStatusRefunded,
}

// ListReturns migrates legacy ids first, so callers always see RTN-NNN.
func (s *Service) ListReturns(ctx context.Context) ([]domain.Return, error) {
	if _, err := s.MigrateReturnIDs(ctx); err != nil {
		return nil, err
	}
	return listAll(ctx, s, s.returns)
}

func (s *Service) GetReturn(ctx context.Context, id string) (domain.Return, error) {
	return load(ctx, s, s.returns, id)
}

func (s *Service) AddReturn(ctx context.Context, req domain.ReturnCreateRequest) (domain.Return, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.OrderID == "" || req.ProductID == "" {
		return domain.Return{}, invalid("order id and product id are required")
	}
	if req.Quantity <= 0 {
		return domain.Return{}, invalid("quantity must be positive")
	}
	if req.Reason == "" {
		req.Reason = domain.ReturnReasonOther
	}
	if !oneOf(req.Reason, returnReasons...) {
		return domain.Return{}, invalid("unknown return reason %q", req.Reason)
	}
	refund, err := s.refundFor(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return domain.Return{}, err
	}

	id, err := s.nextID(ctx, returnIDs)
	if err != nil {
		return domain.Return{}, err
	}
	now := s.now()
	returnDate := req.ReturnDate
	if returnDate == nil {
		returnDate = &now
	}
	ret := domain.Return{
		ID:                id,
		OrderID:           req.OrderID,
		ProductID:         req.ProductID,
		Quantity:          req.Quantity,
		Reason:            req.Reason,
		RefundAmountCents: refund,
		Status:            domain.ReturnStatusPending,
		ReturnDate:        returnDate,
		CreatedAt:         now,
	}
	if err := save(ctx, s, s.returns, id, ret); err != nil {
		return domain.Return{}, err
	}
	s.invalidateReports(ctx)
	return ret, nil
}

func (s *Service) UpdateReturn(ctx context.Context, id string, patch domain.ReturnPatch) (domain.Return, error) {
	ret, err := load(ctx, s, s.returns, id)
	if err != nil {
		return domain.Return{}, err
	}

	repriced := false
	if v := trimmed(patch.ProductID); v != nil && *v != ret.ProductID {
		if *v == "" {
			return domain.Return{}, invalid("product id cannot be empty")
		}
		ret.ProductID = *v
		repriced = true
	}
	if patch.Quantity != nil && *patch.Quantity != ret.Quantity {
		if *patch.Quantity <= 0 {
			return domain.Return{}, invalid("quantity must be positive")
		}
		ret.Quantity = *patch.Quantity
		repriced = true
	}
	if patch.Reason != nil {
		if !oneOf(*patch.Reason, returnReasons...) {
			return domain.Return{}, invalid("unknown return reason %q", *patch.Reason)
		}
		ret.Reason = *patch.Reason
	}
	if patch.Status != nil {
		if !oneOf(*patch.Status, returnStatuses...) {
			return domain.Return{}, invalid("unknown return status %q", *patch.Status)
		}
		ret.Status = *patch.Status
	}
	if repriced {
		refund, err := s.refundFor(ctx, ret.ProductID, ret.Quantity)
		if err != nil {
			return domain.Return{}, err
		}
		ret.RefundAmountCents = refund
	}

	if err := save(ctx, s, s.returns, id, ret); err != nil {
		return domain.Return{}, err
	}
	s.invalidateReports(ctx)
	return ret, nil
}

func (s *Service) DeleteReturn(ctx context.Context, id string) ([]domain.Return, error) {
	remaining, err := remove(ctx, s, s.returns, id)
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return remaining, nil
}

func (s *Service) refundFor(ctx context.Context, productID string, quantity int) (int64, error) {
	product, err := load(ctx, s, s.products, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, invalid("unknown product %s", productID)
		}
		return 0, err
	}
	return product.PriceCents * int64(quantity), nil
}

// MigrateReturnIDs renumbers returns to RTN-001, RTN-002, ... in
// chronological order when any of them still carries a timestamp id. The
// old id is kept in OriginalID. When every id is already sequential it
// does nothing, so it can run on every read.
func (s *Service) MigrateReturnIDs(ctx context.Context) (int, error) {
	returns, err := listAll(ctx, s, s.returns)
	if err != nil {
		return 0, err
	}
	if !needsMigration(returns) {
		return 0, nil
	}

	sorted := make([]domain.Return, len(returns))
	copy(sorted, returns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return returnedAt(sorted[i]).Before(returnedAt(sorted[j]))
	})

	existing := make(map[string]domain.Return, len(returns))
	for _, r := range returns {
		existing[r.ID] = r
	}

	renamed := make([]domain.Return, 0, len(sorted))
	oldIDs := make([]string, 0, len(sorted))
	targets := make(map[string]bool, len(sorted))
	for i, r := range sorted {
		id := xid.Sequential(returnIDs.prefix, int64(i+1), returnIDs.width)
		targets[id] = true
		if r.ID == id {
			continue
		}
		oldIDs = append(oldIDs, r.ID)
		if r.OriginalID == "" {
			r.OriginalID = r.ID
		}
		r.ID = id
		renamed = append(renamed, r)
	}

	// New ids are written before any old id is dropped, so a failed write
	// leaves every original record in place.
	for i, r := range renamed {
		if err := save(ctx, s, s.returns, r.ID, r); err != nil {
			s.rollbackReturnIDs(ctx, renamed[:i], existing)
			return 0, fmt.Errorf("save %s: %w", r.ID, err)
		}
	}
	for _, old := range oldIDs {
		if targets[old] {
			continue
		}
		if err := s.returns.Remove(ctx, old); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.observe(err)
			return 0, fmt.Errorf("remove %s: %w", old, err)
		}
	}
	if err := s.kv.Reserve(ctx, returnIDs.sequence, int64(len(sorted))); err != nil {
		s.observe(err)
		return 0, err
	}

	log.Printf("[service] migrated %d legacy return ids", len(renamed))
	s.invalidateReports(ctx)
	return len(renamed), nil
}

// rollbackReturnIDs undoes the writes of a failed migration: ids that held a
// record before get it back, fresh ids are removed.
func (s *Service) rollbackReturnIDs(ctx context.Context, written []domain.Return, existing map[string]domain.Return) {
	for _, r := range written {
		var err error
		if prev, ok := existing[r.ID]; ok {
			err = s.returns.Save(ctx, r.ID, prev)
		} else {
			err = s.returns.Remove(ctx, r.ID)
		}
		if err != nil {
			log.Printf("[service] ERROR: failed to roll back return %s: %v", r.ID, err)
		}
	}
}

func needsMigration(returns []domain.Return) bool {
	for _, r := range returns {
		if _, digits, _ := xid.Suffix(r.ID, returnIDs.prefix); len(digits) > legacyDigits {
			return true
		}
	}
	return false
}

func returnedAt(r domain.Return) time.Time {
	if r.ReturnDate != nil && !r.ReturnDate.IsZero() {
		return *r.ReturnDate
	}
	return r.CreatedAt
}
