package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medicab/medicab-backend/internal/inventory/service"
	"github.com/medicab/medicab-backend/pkg/httputil"
	"github.com/medicab/medicab-backend/pkg/logger"
)

// AlertHandler handles expiry alert endpoints
type AlertHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(svc *service.InventoryService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service: svc,
		logger:  log,
	}
}

// List lists alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	unacknowledgedOnly := r.URL.Query().Get("unacknowledged") == "true"

	alerts, err := h.service.ListAlerts(r.Context(), unacknowledgedOnly)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}

// Acknowledge acknowledges an alert
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.AcknowledgeAlert(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
