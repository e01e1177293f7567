package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/medicab/medicab-backend/internal/inventory/service"
	"github.com/medicab/medicab-backend/pkg/errors"
	"github.com/medicab/medicab-backend/pkg/httputil"
	"github.com/medicab/medicab-backend/pkg/logger"
)

// StockHandler handles stock entry endpoints
type StockHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.InventoryService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

type manualEntryRequest struct {
	CIP13       string  `json:"cip13" validate:"required,len=13,numeric"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	ExpiryDate  *string `json:"expiry_date,omitempty"`
	BatchNumber *string `json:"batch_number,omitempty"`
}

type adjustRequest struct {
	Adjustment int    `json:"adjustment"`
	Reason     string `json:"reason,omitempty" validate:"max=200"`
}

// List lists stock entries
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	entries, total, err := h.service.ListStock(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get returns a single stock entry
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.service.GetStockEntry(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// CreateManual records a hand-typed entry
func (h *StockHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	outcome, err := h.service.AddManualEntry(r.Context(), req.CIP13, req.Quantity, req.ExpiryDate, req.BatchNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, outcome)
}

// Adjust changes the quantity of a stock entry
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req adjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.Adjustment == 0 {
		httputil.Error(w, errors.BadRequest("adjustment must be non-zero"))
		return
	}

	entry, err := h.service.AdjustStock(r.Context(), id, req.Adjustment, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Delete removes a stock entry
func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteStockEntry(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
