package report

import (
	"sort"
	"time"

	"restodesk/backend/internal/domain"
)

type ProductSales struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	RevenueCents int64  `json:"revenue_cents"`
}

type ManagerReport struct {
	Window                 Window         `json:"window"`
	RevenueCents           int64          `json:"revenue_cents"`
	RevenueTrend           float64        `json:"revenue_trend"`
	Orders                 int            `json:"orders"`
	OrdersTrend            float64        `json:"orders_trend"`
	AverageOrderValueCents float64        `json:"average_order_value_cents"`
	Revenue                Chart          `json:"revenue"`
	OrdersPerDay           Chart          `json:"orders_per_day"`
	TopProducts            []ProductSales `json:"top_products"`
	StatusDistribution     []Share        `json:"status_distribution"`
	Returns                int            `json:"returns"`
	RefundedCents          int64          `json:"refunded_cents"`
	NewCustomers           int            `json:"new_customers"`
	Excluded               int            `json:"excluded"`
}

const topProductLimit = 5

// Manager builds the manager dashboard for w. Cancelled orders count
// towards the status distribution but not towards revenue.
func Manager(orders []domain.Order, returns []domain.Return, customers []domain.Customer, w Window) ManagerReport {
	all, excludedOrders := Filter(orders, orderCreatedAt, w)
	current := billable(all)
	previous, _ := Filter(billable(orders), orderCreatedAt, w.Previous())
	windowReturns, excludedReturns := Filter(returns, returnAt, w)
	newCustomers, excludedCustomers := Filter(customers, func(c domain.Customer) time.Time { return c.CreatedAt }, w)

	revenue := sumTotals(current)
	values := make([]float64, 0, len(current))
	for _, o := range current {
		values = append(values, float64(o.TotalCents))
	}

	statuses := make(map[string]int)
	for _, o := range all {
		statuses[o.Status]++
	}

	var refunded int64
	for _, r := range windowReturns {
		if r.Status != domain.ReturnStatusRejected {
			refunded += r.RefundAmountCents
		}
	}

	return ManagerReport{
		Window:                 w,
		RevenueCents:           revenue,
		RevenueTrend:           Trend(float64(revenue), float64(sumTotals(previous))),
		Orders:                 len(current),
		OrdersTrend:            Trend(float64(len(current)), float64(len(previous))),
		AverageOrderValueCents: Average(values),
		Revenue:                Series(current, orderCreatedAt, w, orderTotal),
		OrdersPerDay:           Series(current, orderCreatedAt, w, count[domain.Order]),
		TopProducts:            topProducts(current, topProductLimit),
		StatusDistribution:     Distribution(statuses),
		Returns:                len(windowReturns),
		RefundedCents:          refunded,
		NewCustomers:           len(newCustomers),
		Excluded:               excludedOrders + excludedReturns + excludedCustomers,
	}
}

func topProducts(orders []domain.Order, limit int) []ProductSales {
	byID := make(map[string]*ProductSales)
	for _, o := range orders {
		for _, line := range o.Products {
			key := line.ProductID
			if key == "" {
				key = line.Name
			}
			entry, ok := byID[key]
			if !ok {
				entry = &ProductSales{ProductID: line.ProductID, Name: line.Name}
				byID[key] = entry
			}
			entry.Quantity += line.Quantity
			entry.RevenueCents += int64(line.Quantity) * line.PriceCents
		}
	}

	out := make([]ProductSales, 0, len(byID))
	for _, entry := range byID {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity == out[j].Quantity {
			return out[i].Name < out[j].Name
		}
		return out[i].Quantity > out[j].Quantity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// returnAt prefers the recorded return date over the entry time.
func returnAt(r domain.Return) time.Time {
	if r.ReturnDate != nil && !r.ReturnDate.IsZero() {
		return *r.ReturnDate
	}
	return r.CreatedAt
}
