package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/notify"
	"restodesk/backend/internal/report"
	"restodesk/backend/internal/xid"
)

var deliveryActionTypes = []string{
	domain.DeliveryAssigned,
	domain.DeliveryPickedUp,
	domain.DeliveryDelivered,
	domain.DeliveryFailed,
	domain.DeliveryPaymentCollected,
}

// RecordDeliveryAction appends to the action log. Entries are never edited
// or removed; stats are rebuilt from the log afterwards.
func (s *Service) RecordDeliveryAction(ctx context.Context, action domain.DeliveryAction) (domain.DeliveryAction, error) {
	action.Type = strings.TrimSpace(action.Type)
	action.DriverID = strings.TrimSpace(action.DriverID)
	action.OrderID = strings.TrimSpace(action.OrderID)
	if !oneOf(action.Type, deliveryActionTypes...) {
		return domain.DeliveryAction{}, invalid("unknown delivery action %q", action.Type)
	}
	if action.DriverID == "" || action.OrderID == "" {
		return domain.DeliveryAction{}, invalid("driver id and order id are required")
	}
	if action.Type == domain.DeliveryPaymentCollected && (action.AmountCents == nil || *action.AmountCents <= 0) {
		return domain.DeliveryAction{}, invalid("payment collection needs a positive amount")
	}

	action.ID = xid.New("act")
	if action.Timestamp.IsZero() {
		action.Timestamp = s.now()
	}
	if err := save(ctx, s, s.actions, action.ID, action); err != nil {
		return domain.DeliveryAction{}, err
	}

	if _, err := s.RebuildDriverStats(ctx, action.DriverID); err != nil {
		return domain.DeliveryAction{}, fmt.Errorf("rebuild stats for %s: %w", action.DriverID, err)
	}
	s.invalidateReports(ctx)
	s.publish(ctx, notify.Event{
		Kind:    notify.KindDeliveryEvent,
		OrderID: action.OrderID,
		Status:  action.Type,
		Message: fmt.Sprintf("driver %s: %s", action.DriverID, action.Type),
	})
	return action, nil
}

func (s *Service) ListDeliveryActions(ctx context.Context, driverID string) ([]domain.DeliveryAction, error) {
	actions, err := listAll(ctx, s, s.actions)
	if err != nil {
		return nil, err
	}
	if driverID == "" {
		return actions, nil
	}
	out := make([]domain.DeliveryAction, 0)
	for _, a := range actions {
		if a.DriverID == driverID {
			out = append(out, a)
		}
	}
	return out, nil
}

// RebuildDriverStats recomputes one driver's aggregates from the whole log.
func (s *Service) RebuildDriverStats(ctx context.Context, driverID string) (domain.DeliveryStats, error) {
	actions, err := s.ListDeliveryActions(ctx, driverID)
	if err != nil {
		return domain.DeliveryStats{}, err
	}
	stats := domain.DeliveryStats{DriverID: driverID, OnTimeRate: 100, UpdatedAt: s.now()}
	for _, st := range report.DriverStats(actions, s.deliverySLA, s.now()) {
		if st.DriverID == driverID {
			stats = st
		}
	}
	if err := save(ctx, s, s.stats, driverID, stats); err != nil {
		return domain.DeliveryStats{}, err
	}
	return stats, nil
}

// RebuildAllDeliveryStats recomputes every driver found in the log.
func (s *Service) RebuildAllDeliveryStats(ctx context.Context) ([]domain.DeliveryStats, error) {
	actions, err := listAll(ctx, s, s.actions)
	if err != nil {
		return nil, err
	}
	stats := report.DriverStats(actions, s.deliverySLA, s.now())
	for _, st := range stats {
		if err := save(ctx, s, s.stats, st.DriverID, st); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *Service) DeliveryStats(ctx context.Context, driverID string) (domain.DeliveryStats, error) {
	return load(ctx, s, s.stats, driverID)
}

func (s *Service) ListDeliveryStats(ctx context.Context) ([]domain.DeliveryStats, error) {
	return listAll(ctx, s, s.stats)
}

func (s *Service) UpdateDriverLocation(ctx context.Context, loc domain.DriverLocation) (domain.DriverLocation, error) {
	loc.DriverID = strings.TrimSpace(loc.DriverID)
	if loc.DriverID == "" {
		return domain.DriverLocation{}, invalid("driver id is required")
	}
	if math.IsNaN(loc.Lat) || math.IsNaN(loc.Lng) || loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return domain.DriverLocation{}, invalid("coordinates out of range")
	}
	loc.UpdatedAt = s.now()
	if err := save(ctx, s, s.locations, loc.DriverID, loc); err != nil {
		return domain.DriverLocation{}, err
	}
	return loc, nil
}

func (s *Service) DriverLocation(ctx context.Context, driverID string) (domain.DriverLocation, error) {
	return load(ctx, s, s.locations, driverID)
}

func (s *Service) ListDriverLocations(ctx context.Context) ([]domain.DriverLocation, error) {
	return listAll(ctx, s, s.locations)
}
