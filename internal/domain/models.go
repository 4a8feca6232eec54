package domain

import "time"

type OrderLine struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

type Order struct {
	ID           string      `json:"id"`
	Customer     string      `json:"customer"`
	Phone        string      `json:"phone"`
	Products     []OrderLine `json:"products"`
	TotalCents   int64       `json:"total_cents"`
	Status       string      `json:"status"`
	DeliveryType string      `json:"delivery_type"`
	KitchenNotes string      `json:"kitchen_notes,omitempty"`
	GeneralNotes string      `json:"general_notes,omitempty"`
	Delayed      bool        `json:"delayed"`
	CreatedAt    time.Time   `json:"created_at"`
	PreparingAt  *time.Time  `json:"preparing_at,omitempty"`
	ReadyAt      *time.Time  `json:"ready_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CancelledAt  *time.Time  `json:"cancelled_at,omitempty"`
}

type OrderCreateRequest struct {
	Customer     string      `json:"customer"`
	Phone        string      `json:"phone"`
	Products     []OrderLine `json:"products"`
	DeliveryType string      `json:"delivery_type"`
	KitchenNotes string      `json:"kitchen_notes"`
	GeneralNotes string      `json:"general_notes"`
}

// OrderPatch carries the mutable order fields. CreatedAt and ID are
// intentionally absent.
type OrderPatch struct {
	Customer     *string      `json:"customer,omitempty"`
	Phone        *string      `json:"phone,omitempty"`
	Products     *[]OrderLine `json:"products,omitempty"`
	Status       *string      `json:"status,omitempty"`
	DeliveryType *string      `json:"delivery_type,omitempty"`
	KitchenNotes *string      `json:"kitchen_notes,omitempty"`
	GeneralNotes *string      `json:"general_notes,omitempty"`
}

type Customer struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	TotalOrders     int       `json:"total_orders"`
	TotalSpentCents int64     `json:"total_spent_cents"`
	LastOrder       string    `json:"last_order,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CustomerPatch struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	MinStock   int       `json:"min_stock"`
	PriceCents int64     `json:"price_cents"`
	Category   string    `json:"category"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name       string `json:"name"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	PriceCents int64  `json:"price_cents"`
	Category   string `json:"category"`
}

type ProductPatch struct {
	Name       *string `json:"name,omitempty"`
	Stock      *int    `json:"stock,omitempty"`
	MinStock   *int    `json:"min_stock,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Category   *string `json:"category,omitempty"`
}

type Return struct {
	ID                string     `json:"id"`
	OriginalID        string     `json:"original_id,omitempty"`
	OrderID           string     `json:"order_id"`
	ProductID         string     `json:"product_id"`
	Quantity          int        `json:"quantity"`
	Reason            string     `json:"reason"`
	RefundAmountCents int64      `json:"refund_amount_cents"`
	Status            string     `json:"status"`
	ReturnDate        *time.Time `json:"return_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type ReturnCreateRequest struct {
	OrderID    string     `json:"order_id"`
	ProductID  string     `json:"product_id"`
	Quantity   int        `json:"quantity"`
	Reason     string     `json:"reason"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

type ReturnPatch struct {
	ProductID *string `json:"product_id,omitempty"`
	Quantity  *int    `json:"quantity,omitempty"`
	Reason    *string `json:"reason,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type PurchaseOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	CostCents int64  `json:"cost_cents"`
}

type PurchaseOrder struct {
	ID         string              `json:"id"`
	PONumber   string              `json:"po_number"`
	Supplier   string              `json:"supplier"`
	Status     string              `json:"status"`
	Items      []PurchaseOrderItem `json:"items"`
	TotalCents int64               `json:"total_cents"`
	OrderDate  time.Time           `json:"order_date"`
}

type PurchaseOrderCreateRequest struct {
	Supplier  string              `json:"supplier"`
	Items     []PurchaseOrderItem `json:"items"`
	OrderDate *time.Time          `json:"order_date,omitempty"`
}

type PurchaseOrderPatch struct {
	Supplier *string              `json:"supplier,omitempty"`
	Status   *string              `json:"status,omitempty"`
	Items    *[]PurchaseOrderItem `json:"items,omitempty"`
}

type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	AmountCents   int64     `json:"amount_cents"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentCreateRequest struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

type FormDraft struct {
	Form     string         `json:"form"`
	Snapshot map[string]any `json:"snapshot"`
	SavedAt  time.Time      `json:"saved_at"`
}

type DeliveryAction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	DriverID    string    `json:"driver_id"`
	OrderID     string    `json:"order_id"`
	Timestamp   time.Time `json:"timestamp"`
	AmountCents *int64    `json:"amount_cents,omitempty"`
}

type DeliveryStats struct {
	DriverID            string    `json:"driver_id"`
	TotalDeliveries     int       `json:"total_deliveries"`
	TotalEarningsCents  int64     `json:"total_earnings_cents"`
	AverageDeliveryTime float64   `json:"average_delivery_time"`
	OnTimeRate          float64   `json:"on_time_rate"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type DriverLocation struct {
	DriverID  string    `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

type KitchenExport struct {
	ExportedAt time.Time `json:"exported_at"`
	Orders     []Order   `json:"orders"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	ReturnReasonDamaged         = "damaged"
	ReturnReasonWrongItem       = "wrong_item"
	ReturnReasonExpired         = "expired"
	ReturnReasonCustomerRequest = "customer_request"
	ReturnReasonOther           = "other"
)

const (
	ReturnStatusPending  = "pending"
	ReturnStatusApproved = "approved"
	ReturnStatusRejected = "rejected"
	ReturnStatusRefunded = "refunded"
)

const (
	POStatusDraft     = "draft"
	POStatusOrdered   = "ordered"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

const (
	DeliveryAssigned         = "assigned"
	DeliveryPickedUp         = "picked_up"
	DeliveryDelivered        = "delivered"
	DeliveryFailed           = "failed"
	DeliveryPaymentCollected = "payment_collected"
)
