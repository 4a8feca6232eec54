package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"restodesk/backend/internal/autosave"
	"restodesk/backend/internal/feed"
	"restodesk/backend/internal/metrics"
	"restodesk/backend/internal/remote"
	"restodesk/backend/internal/service"
	"restodesk/backend/internal/store"
)

type Deps struct {
	Service       *service.Service
	Autosave      *autosave.Debouncer
	Feed          *feed.Hub
	Remote        *remote.Client
	Metrics       *metrics.Metrics
	AllowedOrigin string
	Location      *time.Location
}

type API struct {
	service       *service.Service
	autosave      *autosave.Debouncer
	feed          *feed.Hub
	remote        *remote.Client
	metrics       *metrics.Metrics
	allowedOrigin string
	location      *time.Location
}

func New(deps Deps) *API {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	debouncer := deps.Autosave
	if debouncer == nil {
		debouncer = autosave.New(autosave.DefaultDelay, func(ctx context.Context, form string, snapshot map[string]any) error {
			_, err := deps.Service.SaveDraft(ctx, form, snapshot)
			return err
		})
	}
	hub := deps.Feed
	if hub == nil {
		hub = feed.NewHub(deps.AllowedOrigin)
	}
	return &API{
		service:       deps.Service,
		autosave:      debouncer,
		feed:          hub,
		remote:        deps.Remote,
		metrics:       deps.Metrics,
		allowedOrigin: deps.AllowedOrigin,
		location:      loc,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", a.metrics.Handler())

	mux.HandleFunc("/api/v1/orders", a.handleOrders)
	mux.HandleFunc("/api/v1/orders/", a.handleOrderActions)
	mux.HandleFunc("/api/v1/customers", a.handleCustomers)
	mux.HandleFunc("/api/v1/customers/", a.handleCustomerActions)
	mux.HandleFunc("/api/v1/products", a.handleProducts)
	mux.HandleFunc("/api/v1/products/low-stock", a.handleLowStock)
	mux.HandleFunc("/api/v1/products/", a.handleProductActions)
	mux.HandleFunc("/api/v1/returns", a.handleReturns)
	mux.HandleFunc("/api/v1/returns/", a.handleReturnActions)
	mux.HandleFunc("/api/v1/purchase-orders", a.handlePurchaseOrders)
	mux.HandleFunc("/api/v1/purchase-orders/", a.handlePurchaseOrderActions)
	mux.HandleFunc("/api/v1/payments", a.handlePayments)

	mux.HandleFunc("/api/v1/drafts/", a.handleDrafts)

	mux.HandleFunc("/api/v1/delivery/actions", a.handleDeliveryActions)
	mux.HandleFunc("/api/v1/delivery/stats", a.handleDeliveryStats)
	mux.HandleFunc("/api/v1/delivery/stats/", a.handleDriverStats)
	mux.HandleFunc("/api/v1/delivery/locations", a.handleDriverLocations)

	mux.HandleFunc("/api/v1/reports/delivery", a.handleDeliveryReport)
	mux.HandleFunc("/api/v1/reports/kitchen", a.handleKitchenReport)
	mux.HandleFunc("/api/v1/reports/manager", a.handleManagerReport)

	mux.HandleFunc("/api/v1/kitchen/board", a.handleKitchenBoard)
	mux.HandleFunc("/api/v1/kitchen/export", a.handleKitchenExport)
	mux.HandleFunc("/api/v1/kitchen/feed", a.handleKitchenFeed)
	mux.HandleFunc("/api/v1/seller/home", a.handleSellerHome)
	mux.HandleFunc("/api/v1/seller/feed", a.handleSellerFeed)
	mux.HandleFunc("/api/v1/remote/import", a.handleRemoteImport)
	mux.HandleFunc("/api/v1/remote/import/customers", a.handleRemoteCustomerImport)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusRecorder captures the response code for logging and metrics. It
// unwraps to the underlying writer so websocket upgrades can hijack it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(startedAt)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		a.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		log.Printf("%s %s %d %s id=%s", r.Method, r.URL.Path, rec.status, elapsed, requestID)
	})
}

// statusFor maps service and storage errors onto HTTP codes.
func statusFor(err error) int {
	var upstream *remote.StatusError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, remote.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

// pathTail splits what follows prefix into the record id and an optional
// sub-resource, e.g. "ORD-001/status" -> ("ORD-001", "status").
func pathTail(r *http.Request, prefix string) (string, string, error) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if tail == "" {
		return "", "", errors.New("id required")
	}
	id, action, _ := strings.Cut(tail, "/")
	if strings.Contains(action, "/") {
		return "", "", fmt.Errorf("unknown path %s", r.URL.Path)
	}
	return id, action, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
