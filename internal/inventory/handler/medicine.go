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

// MedicineHandler handles medicine metadata endpoints
type MedicineHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(svc *service.InventoryService, log *logger.Logger) *MedicineHandler {
	return &MedicineHandler{
		service: svc,
		logger:  log,
	}
}

// Get resolves a medicine by CIP13
func (h *MedicineHandler) Get(w http.ResponseWriter, r *http.Request) {
	cip13 := chi.URLParam(r, "cip13")
	if len(cip13) != 13 {
		httputil.Error(w, errors.BadRequest("cip13 must be 13 digits"))
		return
	}

	medicine, err := h.service.GetMedicine(r.Context(), cip13)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, medicine)
}

// Search searches locally known medicines by name
func (h *MedicineHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("q")
	if name == "" {
		httputil.Error(w, errors.BadRequest("q query parameter is required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	medicines, err := h.service.SearchMedicines(r.Context(), name, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, medicines)
}
