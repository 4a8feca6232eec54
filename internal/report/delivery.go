package report

import (
	"sort"
	"time"

	"restodesk/backend/internal/domain"
)

// Run is one finished delivery reconstructed from the action log.
type Run struct {
	DriverID    string
	OrderID     string
	DeliveredAt time.Time
	// Minutes from pickup to drop-off; only meaningful when Timed.
	Minutes     float64
	Timed       bool
	EarnedCents int64
}

func (r Run) OnTime(sla time.Duration) bool {
	return r.Timed && r.Minutes <= sla.Minutes()
}

// Runs pairs delivered actions with the latest earlier pickup of the same
// driver and order. A drop-off with no pickup still counts as a delivery
// but is left untimed.
func Runs(actions []domain.DeliveryAction) []Run {
	sorted := make([]domain.DeliveryAction, 0, len(actions))
	for _, a := range actions {
		if !a.Timestamp.IsZero() {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	type key struct{ driver, order string }
	pickups := make(map[key]time.Time)
	collected := make(map[key]int64)
	runs := make([]Run, 0, len(sorted)/2)

	for _, a := range sorted {
		k := key{a.DriverID, a.OrderID}
		switch a.Type {
		case domain.DeliveryPickedUp:
			pickups[k] = a.Timestamp
		case domain.DeliveryPaymentCollected:
			if a.AmountCents != nil {
				collected[k] += *a.AmountCents
			}
		case domain.DeliveryDelivered:
			run := Run{DriverID: a.DriverID, OrderID: a.OrderID, DeliveredAt: a.Timestamp}
			if start, ok := pickups[k]; ok {
				run.Minutes = a.Timestamp.Sub(start).Minutes()
				run.Timed = true
			}
			if a.AmountCents != nil {
				run.EarnedCents = *a.AmountCents
			}
			runs = append(runs, run)
			delete(pickups, k)
		}
	}

	// Payments collected after drop-off still belong to the run.
	for i := range runs {
		k := key{runs[i].DriverID, runs[i].OrderID}
		runs[i].EarnedCents += collected[k]
		delete(collected, k)
	}
	return runs
}

// DriverStats rebuilds every driver's rolling aggregates from the full log.
func DriverStats(actions []domain.DeliveryAction, sla time.Duration, now time.Time) []domain.DeliveryStats {
	byDriver := make(map[string][]Run)
	for _, run := range Runs(actions) {
		byDriver[run.DriverID] = append(byDriver[run.DriverID], run)
	}
	for _, a := range actions {
		if _, ok := byDriver[a.DriverID]; !ok && a.DriverID != "" {
			byDriver[a.DriverID] = nil
		}
	}

	stats := make([]domain.DeliveryStats, 0, len(byDriver))
	for driverID, runs := range byDriver {
		stats = append(stats, summarizeRuns(driverID, runs, sla, now))
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].DriverID < stats[j].DriverID })
	return stats
}

func summarizeRuns(driverID string, runs []Run, sla time.Duration, now time.Time) domain.DeliveryStats {
	var earnings int64
	minutes := make([]float64, 0, len(runs))
	onTime := 0
	for _, run := range runs {
		earnings += run.EarnedCents
		if run.Timed {
			minutes = append(minutes, run.Minutes)
			if run.OnTime(sla) {
				onTime++
			}
		}
	}
	return domain.DeliveryStats{
		DriverID:            driverID,
		TotalDeliveries:     len(runs),
		TotalEarningsCents:  earnings,
		AverageDeliveryTime: Average(minutes),
		OnTimeRate:          OnTimeRate(len(minutes), onTime),
		UpdatedAt:           now,
	}
}

type DeliveryReport struct {
	Window              Window  `json:"window"`
	Orders              int     `json:"orders"`
	TotalEarningsCents  int64   `json:"total_earnings_cents"`
	EarningsTrend       float64 `json:"earnings_trend"`
	Deliveries          int     `json:"deliveries"`
	Failed              int     `json:"failed"`
	AverageDeliveryTime float64 `json:"average_delivery_time"`
	OnTimeRate          float64 `json:"on_time_rate"`
	Earnings            Chart   `json:"earnings"`
	DeliveriesPerDay    Chart   `json:"deliveries_per_day"`
	Excluded            int     `json:"excluded"`
}

// Delivery summarises delivery performance in w. Earnings come from the
// orders created in w; timings come from the action log.
func Delivery(orders []domain.Order, actions []domain.DeliveryAction, w Window, sla time.Duration) DeliveryReport {
	current, excludedOrders := Filter(billable(orders), orderCreatedAt, w)
	previous, _ := Filter(billable(orders), orderCreatedAt, w.Previous())
	inWindow, excludedActions := Filter(actions, actionAt, w)

	runs := make([]Run, 0)
	for _, run := range Runs(actions) {
		if w.Contains(run.DeliveredAt) {
			runs = append(runs, run)
		}
	}

	minutes := make([]float64, 0, len(runs))
	onTime := 0
	for _, run := range runs {
		if run.Timed {
			minutes = append(minutes, run.Minutes)
			if run.OnTime(sla) {
				onTime++
			}
		}
	}
	failed := 0
	for _, a := range inWindow {
		if a.Type == domain.DeliveryFailed {
			failed++
		}
	}

	earnings := sumTotals(current)
	return DeliveryReport{
		Window:              w,
		Orders:              len(current),
		TotalEarningsCents:  earnings,
		EarningsTrend:       Trend(float64(earnings), float64(sumTotals(previous))),
		Deliveries:          len(runs),
		Failed:              failed,
		AverageDeliveryTime: Average(minutes),
		OnTimeRate:          OnTimeRate(len(minutes), onTime),
		Earnings:            Series(current, orderCreatedAt, w, orderTotal),
		DeliveriesPerDay:    Series(runs, func(r Run) time.Time { return r.DeliveredAt }, w, count[Run]),
		Excluded:            excludedOrders + excludedActions,
	}
}

func actionAt(a domain.DeliveryAction) time.Time { return a.Timestamp }

func orderCreatedAt(o domain.Order) time.Time { return o.CreatedAt }

func orderTotal(o domain.Order) float64 { return float64(o.TotalCents) }

// billable drops cancelled orders.
func billable(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != domain.OrderStatusCancelled {
			out = append(out, o)
		}
	}
	return out
}

func sumTotals(orders []domain.Order) int64 {
	var total int64
	for _, o := range orders {
		total += o.TotalCents
	}
	return total
}
