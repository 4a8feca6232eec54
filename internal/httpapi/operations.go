package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/feed"
	"restodesk/backend/internal/remote"
	"restodesk/backend/internal/report"
	"restodesk/backend/internal/service"
)

func errUnknownAction(action string) error {
	return fmt.Errorf("unknown action %q", action)
}

type draftRequest struct {
	Snapshot map[string]any `json:"snapshot"`
}

func (a *API) handleDrafts(w http.ResponseWriter, r *http.Request) {
	form, action, err := pathTail(r, "/api/v1/drafts/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch {
	case action == "autosave" && r.Method == http.MethodPost:
		var req draftRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a.autosave.Touch(form, req.Snapshot)
		writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": true})
	case action == "flush" && r.Method == http.MethodPost:
		flushed, err := a.autosave.Flush(r.Context(), form)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"flushed": flushed})
	case action != "":
		writeError(w, http.StatusNotFound, errUnknownAction(action))
	case r.Method == http.MethodGet:
		draft, err := a.service.LoadDraft(r.Context(), form)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": draft})
	case r.Method == http.MethodPut:
		var req draftRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a.autosave.Cancel(form)
		draft, err := a.service.SaveDraft(r.Context(), form, req.Snapshot)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": draft})
	case r.Method == http.MethodDelete:
		a.autosave.Cancel(form)
		if err := a.service.DiscardDraft(r.Context(), form); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleDeliveryActions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		actions, err := a.service.ListDeliveryActions(r.Context(), r.URL.Query().Get("driver_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 200, 1000)
		if len(actions) > limit {
			actions = actions[len(actions)-limit:]
		}
		writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
	case http.MethodPost:
		var action domain.DeliveryAction
		if err := decodeJSON(r, &action); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		recorded, err := a.service.RecordDeliveryAction(r.Context(), action)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"action": recorded})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleDeliveryStats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stats, err := a.service.ListDeliveryStats(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
	case http.MethodPost:
		stats, err := a.service.RebuildAllDeliveryStats(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleDriverStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	driverID, action, err := pathTail(r, "/api/v1/delivery/stats/")
	if err != nil || action != "" {
		writeError(w, http.StatusBadRequest, errors.New("driver id required"))
		return
	}
	stats, err := a.service.DeliveryStats(r.Context(), driverID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (a *API) handleDriverLocations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if driverID := r.URL.Query().Get("driver_id"); driverID != "" {
			loc, err := a.service.DriverLocation(r.Context(), driverID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"location": loc})
			return
		}
		locations, err := a.service.ListDriverLocations(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
	case http.MethodPut, http.MethodPost:
		var loc domain.DriverLocation
		if err := decodeJSON(r, &loc); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		saved, err := a.service.UpdateDriverLocation(r.Context(), loc)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"location": saved})
	default:
		writeMethodNotAllowed(w)
	}
}

// reportQuery reads ?period=today|week|month|custom&from=YYYY-MM-DD&to=YYYY-MM-DD.
func (a *API) reportQuery(r *http.Request) (service.ReportQuery, error) {
	q := r.URL.Query()
	query := service.ReportQuery{Period: report.Period(strings.ToLower(strings.TrimSpace(q.Get("period"))))}
	for _, field := range []struct {
		name string
		dest *time.Time
	}{{"from", &query.From}, {"to", &query.To}} {
		raw := strings.TrimSpace(q.Get(field.name))
		if raw == "" {
			continue
		}
		parsed, err := time.ParseInLocation("2006-01-02", raw, a.location)
		if err != nil {
			return service.ReportQuery{}, fmt.Errorf("%s must be YYYY-MM-DD", field.name)
		}
		*field.dest = parsed
	}
	return query, nil
}

func (a *API) handleDeliveryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	q, err := a.reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := a.service.DeliveryReport(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": rep})
}

func (a *API) handleKitchenReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	q, err := a.reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := a.service.KitchenReport(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": rep})
}

func (a *API) handleManagerReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	q, err := a.reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := a.service.ManagerReport(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": rep})
}

func (a *API) handleKitchenBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	board, err := a.service.KitchenBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) handleKitchenExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	export, err := a.service.ExportKitchenOrders(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	filename := fmt.Sprintf("kitchen-orders-%s.json", export.ExportedAt.Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, export)
}

func (a *API) handleKitchenFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.feed.Serve(w, r, feed.TopicKitchen)
}

func (a *API) handleSellerHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	home, err := a.service.SellerHome(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (a *API) handleSellerFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.feed.Serve(w, r, feed.TopicSeller)
}

func (a *API) handleRemoteImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if a.remote == nil {
		writeServiceError(w, remote.ErrNotConfigured)
		return
	}
	orders, err := a.remote.FetchOrders(r.Context())
	if err != nil {
		writeError(w, statusFor(err), fmt.Errorf("remote order api: %w", err))
		return
	}
	imported, err := a.service.ImportOrders(r.Context(), orders)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fetched": len(orders), "imported": imported})
}

func (a *API) handleRemoteCustomerImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if a.remote == nil {
		writeServiceError(w, remote.ErrNotConfigured)
		return
	}
	customers, err := a.remote.FetchCustomers(r.Context())
	if err != nil {
		writeError(w, statusFor(err), fmt.Errorf("remote customer api: %w", err))
		return
	}
	imported, err := a.service.ImportCustomers(r.Context(), customers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fetched": len(customers), "imported": imported})
}
