package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medicab/medicab-backend/internal/inventory/events"
	"github.com/medicab/medicab-backend/internal/inventory/repository"
	"github.com/medicab/medicab-backend/internal/lookup"
	"github.com/medicab/medicab-backend/internal/scan"
	"github.com/medicab/medicab-backend/pkg/errors"
	"github.com/medicab/medicab-backend/pkg/logger"
)

// MedicineLookup resolves a CIP13 against the public drug database.
// Satisfied by lookup.Client in production.
type MedicineLookup interface {
	GetByCIP13(ctx context.Context, cip13 string) (*lookup.Medicine, error)
}

// ScanOutcome is the result of recording a scan into the cabinet.
type ScanOutcome struct {
	Scan     *scan.Result           `json:"scan"`
	Medicine *repository.Medicine   `json:"medicine,omitempty"`
	Entry    *repository.StockEntry `json:"entry"`
}

// ScanPreview is the result of decoding a payload without persisting anything.
type ScanPreview struct {
	Scan     *scan.Result         `json:"scan"`
	Raw      scan.GS1Result       `json:"raw"`
	Medicine *repository.Medicine `json:"medicine,omitempty"`
}

// InventoryService handles cabinet inventory business logic
type InventoryService struct {
	decoder      *scan.Decoder
	medicineRepo *repository.MedicineRepository
	stockRepo    *repository.StockRepository
	alertRepo    *repository.AlertRepository
	lookup       MedicineLookup
	cache        *lookup.Cache
	publisher    *events.CabinetEventPublisher
	logger       *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	decoder *scan.Decoder,
	medicineRepo *repository.MedicineRepository,
	stockRepo *repository.StockRepository,
	alertRepo *repository.AlertRepository,
	lkp MedicineLookup,
	cache *lookup.Cache,
	publisher *events.CabinetEventPublisher,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		decoder:      decoder,
		medicineRepo: medicineRepo,
		stockRepo:    stockRepo,
		alertRepo:    alertRepo,
		lookup:       lkp,
		cache:        cache,
		publisher:    publisher,
		logger:       log,
	}
}

// RecordScan classifies a raw scanner payload and records it into the
// cabinet. An existing entry with the same product code, expiry date and
// batch number gets its quantity incremented; otherwise a new entry is
// created with quantity 1.
func (s *InventoryService) RecordScan(ctx context.Context, raw string) (*ScanOutcome, error) {
	result := s.decoder.Classify(raw)
	if result == nil {
		return nil, errors.UnrecognizedScan()
	}

	medicine, err := s.resolveMedicine(ctx, result.ProductCode)
	if err != nil {
		return nil, err
	}

	expiry, err := parseExpiry(result.ExpiryDate)
	if err != nil {
		return nil, err
	}

	entry, err := s.stockRepo.FindByScanKey(ctx, result.ProductCode, expiry, result.BatchNumber)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	if entry != nil {
		quantity, err := s.stockRepo.AdjustQuantity(ctx, entry.ID, 1)
		if err != nil {
			return nil, err
		}
		entry.Quantity = quantity
	} else {
		entry = &repository.StockEntry{
			CIP13:        result.ProductCode,
			Quantity:     1,
			ExpiryDate:   expiry,
			BatchNumber:  result.BatchNumber,
			SerialNumber: result.SerialNumber,
			Source:       string(result.Source),
		}
		if err := s.stockRepo.Create(ctx, entry); err != nil {
			return nil, err
		}
	}

	name := ""
	if medicine != nil {
		name = medicine.Name
	}
	s.publisher.PublishMedicineScanned(ctx, result, name, entry)

	s.logger.Info().
		Str("cip13", result.ProductCode).
		Str("source", string(result.Source)).
		Str("entry_id", entry.ID).
		Int("quantity", entry.Quantity).
		Msg("scan recorded")

	return &ScanOutcome{
		Scan:     result,
		Medicine: medicine,
		Entry:    entry,
	}, nil
}

// PreviewScan decodes a payload without touching stock. The raw GS1 field
// breakdown is included so a client can show what the symbol carried.
func (s *InventoryService) PreviewScan(ctx context.Context, raw string) (*ScanPreview, error) {
	result := s.decoder.Classify(raw)
	if result == nil {
		return nil, errors.UnrecognizedScan()
	}

	medicine, err := s.resolveMedicine(ctx, result.ProductCode)
	if err != nil {
		return nil, err
	}

	return &ScanPreview{
		Scan:     result,
		Raw:      s.decoder.ParseGS1(raw),
		Medicine: medicine,
	}, nil
}

// AddManualEntry records stock typed in by hand rather than scanned.
func (s *InventoryService) AddManualEntry(ctx context.Context, cip13 string, quantity int, expiryDate *string, batchNumber *string) (*ScanOutcome, error) {
	result := s.decoder.ClassifyManual(cip13)
	if result == nil {
		return nil, errors.BadRequest(fmt.Sprintf("not a valid CIP13 for this market: %q", cip13))
	}
	result.ExpiryDate = expiryDate
	result.BatchNumber = batchNumber

	medicine, err := s.resolveMedicine(ctx, result.ProductCode)
	if err != nil {
		return nil, err
	}

	expiry, err := parseExpiry(expiryDate)
	if err != nil {
		return nil, err
	}

	entry, err := s.stockRepo.FindByScanKey(ctx, result.ProductCode, expiry, batchNumber)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	if entry != nil {
		newQuantity, err := s.stockRepo.AdjustQuantity(ctx, entry.ID, quantity)
		if err != nil {
			return nil, err
		}
		entry.Quantity = newQuantity
	} else {
		entry = &repository.StockEntry{
			CIP13:       result.ProductCode,
			Quantity:    quantity,
			ExpiryDate:  expiry,
			BatchNumber: batchNumber,
			Source:      string(scan.SourceManual),
		}
		if err := s.stockRepo.Create(ctx, entry); err != nil {
			return nil, err
		}
	}

	name := ""
	if medicine != nil {
		name = medicine.Name
	}
	s.publisher.PublishMedicineScanned(ctx, result, name, entry)

	return &ScanOutcome{
		Scan:     result,
		Medicine: medicine,
		Entry:    entry,
	}, nil
}

// ListStock returns a page of stock entries with the total count.
func (s *InventoryService) ListStock(ctx context.Context, page, perPage int) ([]*repository.StockEntry, int64, error) {
	return s.stockRepo.List(ctx, page, perPage)
}

// GetStockEntry returns a single stock entry by ID.
func (s *InventoryService) GetStockEntry(ctx context.Context, id string) (*repository.StockEntry, error) {
	return s.stockRepo.GetByID(ctx, id)
}

// AdjustStock changes the quantity of an entry by delta (clamped at zero)
// and publishes the resulting state.
func (s *InventoryService) AdjustStock(ctx context.Context, id string, delta int, reason string) (*repository.StockEntry, error) {
	entry, err := s.stockRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	quantity, err := s.stockRepo.AdjustQuantity(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	entry.Quantity = quantity

	s.publisher.PublishStockUpdated(ctx, entry, delta, reason)

	s.logger.Info().
		Str("entry_id", id).
		Int("adjustment", delta).
		Int("new_quantity", quantity).
		Msg("stock adjusted")

	return entry, nil
}

// DeleteStockEntry removes an entry from the cabinet.
func (s *InventoryService) DeleteStockEntry(ctx context.Context, id string) error {
	return s.stockRepo.Delete(ctx, id)
}

// GetMedicine resolves descriptive metadata for a CIP13.
func (s *InventoryService) GetMedicine(ctx context.Context, cip13 string) (*repository.Medicine, error) {
	medicine, err := s.resolveMedicine(ctx, cip13)
	if err != nil {
		return nil, err
	}
	if medicine == nil {
		return nil, errors.NotFound("medicine")
	}
	return medicine, nil
}

// SearchMedicines searches locally cached medicine records by name.
func (s *InventoryService) SearchMedicines(ctx context.Context, name string, limit int) ([]*repository.Medicine, error) {
	return s.medicineRepo.Search(ctx, name, limit)
}

// ListAlerts returns expiry alerts, optionally only unacknowledged ones.
func (s *InventoryService) ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]*repository.Alert, error) {
	return s.alertRepo.List(ctx, unacknowledgedOnly)
}

// AcknowledgeAlert marks an alert as seen.
func (s *InventoryService) AcknowledgeAlert(ctx context.Context, id string) error {
	return s.alertRepo.Acknowledge(ctx, id)
}

// resolveMedicine finds metadata for a product code: memory cache first,
// then the local table, then the remote drug database. A medicine missing
// from the remote database is not an error; the scan is still recorded.
func (s *InventoryService) resolveMedicine(ctx context.Context, cip13 string) (*repository.Medicine, error) {
	if cached := s.cache.Get(cip13); cached != nil {
		return toRepoMedicine(cached), nil
	}

	local, err := s.medicineRepo.GetByCIP13(ctx, cip13)
	if err == nil {
		return local, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	remote, err := s.lookup.GetByCIP13(ctx, cip13)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn().Str("cip13", cip13).Msg("medicine not found in drug database")
			return nil, nil
		}
		return nil, err
	}

	medicine := toRepoMedicine(remote)
	if err := s.medicineRepo.Upsert(ctx, medicine); err != nil {
		return nil, err
	}
	s.cache.Set(remote)

	return medicine, nil
}

func toRepoMedicine(m *lookup.Medicine) *repository.Medicine {
	return &repository.Medicine{
		CIP13:                m.CIP13,
		Name:                 m.Name,
		PharmaceuticalForm:   m.PharmaceuticalForm,
		AdministrationRoutes: m.AdministrationRoutes,
		MarketingHolder:      m.MarketingHolder,
		Presentation:         m.Presentation,
	}
}

func parseExpiry(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, errors.BadRequest(fmt.Sprintf("invalid expiry date: %q", *value))
	}
	return &t, nil
}
