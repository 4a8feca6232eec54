package report

import (
	"time"

	"restodesk/backend/internal/domain"
)

type KitchenReport struct {
	Window             Window         `json:"window"`
	TotalOrders        int            `json:"total_orders"`
	OrdersTrend        float64        `json:"orders_trend"`
	StatusCounts       map[string]int `json:"status_counts"`
	StatusDistribution []Share        `json:"status_distribution"`
	Completed          int            `json:"completed"`
	OnTimeRate         float64        `json:"on_time_rate"`
	AveragePrepMinutes float64        `json:"average_prep_minutes"`
	OrdersPerDay       Chart          `json:"orders_per_day"`
	Excluded           int            `json:"excluded"`
}

// Kitchen summarises throughput and preparation time for orders created in w.
func Kitchen(orders []domain.Order, w Window) KitchenReport {
	current, excluded := Filter(orders, orderCreatedAt, w)
	previous, _ := Filter(orders, orderCreatedAt, w.Previous())

	statusCounts := map[string]int{
		domain.OrderStatusPending:   0,
		domain.OrderStatusPreparing: 0,
		domain.OrderStatusReady:     0,
		domain.OrderStatusCompleted: 0,
		domain.OrderStatusCancelled: 0,
	}
	completed, onTime := 0, 0
	prep := make([]float64, 0, len(current))
	for _, o := range current {
		statusCounts[o.Status]++
		if o.Status == domain.OrderStatusCompleted {
			completed++
			if !o.Delayed {
				onTime++
			}
		}
		if minutes, ok := PrepMinutes(o); ok {
			prep = append(prep, minutes)
		}
	}

	return KitchenReport{
		Window:             w,
		TotalOrders:        len(current),
		OrdersTrend:        Trend(float64(len(current)), float64(len(previous))),
		StatusCounts:       statusCounts,
		StatusDistribution: Distribution(statusCounts),
		Completed:          completed,
		OnTimeRate:         OnTimeRate(completed, onTime),
		AveragePrepMinutes: Average(prep),
		OrdersPerDay:       Series(current, orderCreatedAt, w, count[domain.Order]),
		Excluded:           excluded,
	}
}

// PrepMinutes is the time from the kitchen picking the order up (or, when
// that was skipped, from intake) until it was ready.
func PrepMinutes(o domain.Order) (float64, bool) {
	var done *time.Time
	switch {
	case o.ReadyAt != nil:
		done = o.ReadyAt
	case o.CompletedAt != nil:
		done = o.CompletedAt
	default:
		return 0, false
	}
	start := o.CreatedAt
	if o.PreparingAt != nil {
		start = *o.PreparingAt
	}
	if start.IsZero() || done.Before(start) {
		return 0, false
	}
	return done.Sub(start).Minutes(), true
}
