package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"restodesk/backend/internal/autosave"
	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/feed"
	"restodesk/backend/internal/metrics"
	"restodesk/backend/internal/remote"
	"restodesk/backend/internal/service"
	"restodesk/backend/internal/store/memory"
)

type testEnv struct {
	api     *API
	handler http.Handler
	svc     *service.Service
	hub     *feed.Hub
}

// newTestEnv wires the full request path over a seeded in-memory store.
// The autosave delay is long enough that only explicit flushes write.
func newTestEnv(t *testing.T, upstream *remote.Client) *testEnv {
	t.Helper()

	svc := service.New(memory.NewSeeded(), service.Options{Location: time.UTC})
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	debouncer := autosave.New(time.Hour, func(ctx context.Context, form string, snapshot map[string]any) error {
		_, err := svc.SaveDraft(ctx, form, snapshot)
		return err
	})
	t.Cleanup(debouncer.Stop)
	hub := feed.NewHub("*")
	t.Cleanup(hub.Close)

	api := New(Deps{
		Service:       svc,
		Autosave:      debouncer,
		Feed:          hub,
		Remote:        upstream,
		Metrics:       metrics.New(),
		AllowedOrigin: "*",
		Location:      time.UTC,
	})
	return &testEnv{api: api, handler: api.Handler(), svc: svc, hub: hub}
}

func (e *testEnv) do(t *testing.T, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (raw: %s)", err, rec.Body.String())
	}
}

func sampleOrder(customer string, phone string) domain.OrderCreateRequest {
	return domain.OrderCreateRequest{
		Customer: customer,
		Phone:    phone,
		Products: []domain.OrderLine{
			{ProductID: "PRD-001", Name: "Nasi Goreng Spesial", Quantity: 2, PriceCents: 3500000},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", nil)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("expected a generated X-Request-ID")
	}
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "till-7")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "till-7" {
		t.Fatalf("expected caller request id to be echoed, got %q", got)
	}
}

func TestOptionsPreflightShortCircuits(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodOptions, "/api/v1/orders", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestCreateOrderBooksCustomer(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Order domain.Order `json:"order"`
	}
	decodeBody(t, rec, &created)
	if created.Order.ID != "ORD-001" {
		t.Fatalf("expected ORD-001, got %s", created.Order.ID)
	}
	if created.Order.TotalCents != 7000000 {
		t.Fatalf("expected total 7000000, got %d", created.Order.TotalCents)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/customers", nil)
	var listed struct {
		Customers []domain.Customer `json:"customers"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Customers) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(listed.Customers))
	}
	ali := listed.Customers[2]
	if ali.ID != "CUST-3" || ali.TotalOrders != 1 || ali.LastOrder != "ORD-001" {
		t.Fatalf("unexpected customer: %+v", ali)
	}
}

func TestCreateOrderRejectsEmptyBasket(t *testing.T) {
	env := newTestEnv(t, nil)
	req := sampleOrder("Ali", "")
	req.Products = nil

	rec := env.do(t, http.MethodPost, "/api/v1/orders", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/orders", map[string]any{"customer": "Ali", "table": 4})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	body := fmt.Sprintf(`{"customer":"%s","products":[]}`, strings.Repeat("a", (1<<20)+1024))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestGetMissingOrderReturns404(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/orders/ORD-404", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOrderStatusFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))

	rec := env.do(t, http.MethodPost, "/api/v1/orders/ORD-001/status", map[string]string{"status": "completed"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for skipped step, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/orders/ORD-001/status", map[string]string{"status": "preparing"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated struct {
		Order domain.Order `json:"order"`
	}
	decodeBody(t, rec, &updated)
	if updated.Order.Status != domain.OrderStatusPreparing || updated.Order.PreparingAt == nil {
		t.Fatalf("unexpected order after status change: %+v", updated.Order)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/orders?active=true", nil)
	var active struct {
		Orders []domain.Order `json:"orders"`
	}
	decodeBody(t, rec, &active)
	if len(active.Orders) != 1 {
		t.Fatalf("expected 1 active order, got %d", len(active.Orders))
	}
}

func TestPatchOrderMergesFields(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))

	rec := env.do(t, http.MethodPatch, "/api/v1/orders/ORD-001", map[string]string{"kitchen_notes": "no chili"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var patched struct {
		Order domain.Order `json:"order"`
	}
	decodeBody(t, rec, &patched)
	if patched.Order.KitchenNotes != "no chili" || patched.Order.Customer != "Ali" {
		t.Fatalf("expected merged order, got %+v", patched.Order)
	}
}

func TestDeleteOrderReturnsRemaining(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Budi", "777"))

	rec := env.do(t, http.MethodDelete, "/api/v1/orders/ORD-001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var remaining struct {
		Orders []domain.Order `json:"orders"`
	}
	decodeBody(t, rec, &remaining)
	if len(remaining.Orders) != 1 || remaining.Orders[0].ID != "ORD-002" {
		t.Fatalf("unexpected remaining orders: %+v", remaining.Orders)
	}
}

func TestUnknownSubresourceReturns404(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))

	rec := env.do(t, http.MethodGet, "/api/v1/orders/ORD-001/receipt", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLowStockListsSeededShortage(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/products/low-stock", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &body)
	if len(body.Products) != 1 || body.Products[0].ID != "PRD-006" {
		t.Fatalf("expected only PRD-006, got %+v", body.Products)
	}
}

func TestDraftSaveLoadDiscard(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/api/v1/drafts/new-order", map[string]any{
		"snapshot": map[string]any{"customer": "Ali"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/drafts/new-order", nil)
	var loaded struct {
		Draft domain.FormDraft `json:"draft"`
	}
	decodeBody(t, rec, &loaded)
	if loaded.Draft.Snapshot["customer"] != "Ali" {
		t.Fatalf("unexpected draft: %+v", loaded.Draft)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/drafts/new-order", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on discard, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/drafts/new-order", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after discard, got %d", rec.Code)
	}
}

func TestDraftAutosaveWaitsForFlush(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/drafts/new-order/autosave", map[string]any{
		"snapshot": map[string]any{"customer": "Budi"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/drafts/new-order", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected nothing stored before flush, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/drafts/new-order/flush", nil)
	var flushed struct {
		Flushed bool `json:"flushed"`
	}
	decodeBody(t, rec, &flushed)
	if !flushed.Flushed {
		t.Fatalf("expected pending snapshot to be flushed")
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/drafts/new-order", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected draft after flush, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/drafts/new-order/flush", nil)
	decodeBody(t, rec, &flushed)
	if flushed.Flushed {
		t.Fatalf("expected second flush to find nothing pending")
	}
}

func TestDeliveryActionUpdatesStats(t *testing.T) {
	env := newTestEnv(t, nil)
	pickup := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	for _, action := range []domain.DeliveryAction{
		{Type: domain.DeliveryPickedUp, DriverID: "DRV-1", OrderID: "ORD-001", Timestamp: pickup},
		{Type: domain.DeliveryDelivered, DriverID: "DRV-1", OrderID: "ORD-001", Timestamp: pickup.Add(30 * time.Minute)},
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/delivery/actions", action)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/delivery/stats/DRV-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Stats domain.DeliveryStats `json:"stats"`
	}
	decodeBody(t, rec, &body)
	if body.Stats.TotalDeliveries != 1 || body.Stats.AverageDeliveryTime != 30 {
		t.Fatalf("unexpected stats: %+v", body.Stats)
	}
}

func TestDeliveryActionRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/delivery/actions", domain.DeliveryAction{
		Type: "teleported", DriverID: "DRV-1", OrderID: "ORD-001",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDriverLocationRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPut, "/api/v1/delivery/locations", domain.DriverLocation{DriverID: "DRV-1", Lat: -6.2, Lng: 106.8})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/delivery/locations?driver_id=DRV-1", nil)
	var body struct {
		Location domain.DriverLocation `json:"location"`
	}
	decodeBody(t, rec, &body)
	if body.Location.Lat != -6.2 || body.Location.Lng != 106.8 {
		t.Fatalf("unexpected location: %+v", body.Location)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/delivery/locations", domain.DriverLocation{DriverID: "DRV-1", Lat: 120, Lng: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range latitude, got %d", rec.Code)
	}
}

func TestManagerReportCountsTodaysOrders(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))

	rec := env.do(t, http.MethodGet, "/api/v1/reports/manager?period=today", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Report map[string]any `json:"report"`
	}
	decodeBody(t, rec, &body)
	if body.Report == nil {
		t.Fatalf("expected a report payload")
	}
}

func TestReportRejectsBadWindow(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []string{
		"/api/v1/reports/kitchen?period=fortnight",
		"/api/v1/reports/kitchen?period=custom",
		"/api/v1/reports/delivery?period=custom&from=2026-10-20&to=2026-10-01",
		"/api/v1/reports/manager?period=custom&from=20261001&to=2026-10-02",
	}
	for _, path := range cases {
		rec := env.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestKitchenExportIsAttachment(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))

	rec := env.do(t, http.MethodGet, "/api/v1/kitchen/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "attachment;") {
		t.Fatalf("expected attachment disposition, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"exported_at":`) {
		t.Fatalf("expected snake_case exported_at envelope, got %s", rec.Body.String())
	}
	var export domain.KitchenExport
	decodeBody(t, rec, &export)
	if len(export.Orders) != 1 || export.ExportedAt.IsZero() {
		t.Fatalf("unexpected export: %+v", export)
	}
}

func TestKitchenBoardCountsByStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))
	env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Budi", "777"))
	env.do(t, http.MethodPost, "/api/v1/orders/ORD-002/status", map[string]string{"status": "preparing"})

	rec := env.do(t, http.MethodGet, "/api/v1/kitchen/board", nil)
	var board service.KitchenBoard
	decodeBody(t, rec, &board)
	if board.Counts["pending"] != 1 || board.Counts["preparing"] != 1 {
		t.Fatalf("unexpected counts: %+v", board.Counts)
	}
}

func TestKitchenFeedReplaysLatestSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	server := httptest.NewServer(env.handler)
	defer server.Close()

	env.hub.Broadcast(feed.TopicKitchen, map[string]int{"pending": 2})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/kitchen/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Topic   string         `json:"topic"`
		Payload map[string]int `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Topic != feed.TopicKitchen || msg.Payload["pending"] != 2 {
		t.Fatalf("unexpected snapshot: %+v", msg)
	}
}

func TestRemoteImportWithoutUpstreamIsUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/remote/import", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRemoteImportStoresUpstreamOrders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"ORD-050","customer":"Remote","products":[{"product_id":"PRD-004","name":"Es Teh Manis","quantity":2,"price_cents":800000}]},
			{"customer":"No Id","products":[{"product_id":"PRD-005","name":"Es Jeruk","quantity":1,"price_cents":1200000}]}
		]}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, remote.NewClient(upstream.URL, time.Second))
	rec := env.do(t, http.MethodPost, "/api/v1/remote/import", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Fetched  int `json:"fetched"`
		Imported int `json:"imported"`
	}
	decodeBody(t, rec, &body)
	if body.Fetched != 2 || body.Imported != 2 {
		t.Fatalf("unexpected import result: %+v", body)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/orders", sampleOrder("Ali", "555"))
	var created struct {
		Order domain.Order `json:"order"`
	}
	decodeBody(t, rec, &created)
	if created.Order.ID != "ORD-052" {
		t.Fatalf("expected numbering to continue after imported ids, got %s", created.Order.ID)
	}
}

func TestRemoteCustomerImportSkipsKnownIDs(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"CUST-1","name":"Walk-in"},
			{"id":"CUST-9","name":"Sari","phone":"0812"},
			{"name":"Dewi","phone":"0813"}
		]`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, remote.NewClient(upstream.URL, time.Second))
	rec := env.do(t, http.MethodPost, "/api/v1/remote/import/customers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Fetched  int `json:"fetched"`
		Imported int `json:"imported"`
	}
	decodeBody(t, rec, &body)
	if body.Fetched != 3 || body.Imported != 2 {
		t.Fatalf("unexpected import result: %+v", body)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/customers/CUST-9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected imported customer, got %d", rec.Code)
	}
}

func TestRemoteImportSurfacesUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	env := newTestEnv(t, remote.NewClient(upstream.URL, time.Second))
	rec := env.do(t, http.MethodPost, "/api/v1/remote/import", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposesRequestCounter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/healthz", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/healthz") {
		t.Fatalf("expected /healthz route in metrics output")
	}
}
