package handler

import (
	"net/http"

	"github.com/medicab/medicab-backend/internal/inventory/service"
	"github.com/medicab/medicab-backend/pkg/errors"
	"github.com/medicab/medicab-backend/pkg/httputil"
	"github.com/medicab/medicab-backend/pkg/logger"
)

// maxPayloadLength caps raw scanner input; DataMatrix payloads are short
// and anything longer is garbage.
const maxPayloadLength = 500

// ScanHandler handles scan intake endpoints
type ScanHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(svc *service.InventoryService, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		service: svc,
		logger:  log,
	}
}

type scanRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// Record decodes a scanner payload and records it into the cabinet
func (h *ScanHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	if len(req.Payload) > maxPayloadLength {
		httputil.Error(w, errors.BadRequest("payload too long"))
		return
	}

	outcome, err := h.service.RecordScan(r.Context(), req.Payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, outcome)
}

// Preview decodes a scanner payload without recording anything
func (h *ScanHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	if len(req.Payload) > maxPayloadLength {
		httputil.Error(w, errors.BadRequest("payload too long"))
		return
	}

	preview, err := h.service.PreviewScan(r.Context(), req.Payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, preview)
}
