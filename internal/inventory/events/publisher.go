package events

import (
	"context"

	"github.com/medicab/medicab-backend/internal/inventory/repository"
	"github.com/medicab/medicab-backend/internal/scan"
	"github.com/medicab/medicab-backend/pkg/logger"
	"github.com/medicab/medicab-backend/pkg/messaging"
)

// Publisher is the publishing capability this package needs. Satisfied by
// messaging.Publisher in production and by testutil.MockPublisher in tests.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// CabinetEventPublisher publishes cabinet-related events
type CabinetEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewCabinetEventPublisher creates a publisher bound to the cabinet exchange
func NewCabinetEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*CabinetEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCabinetEvents, "cabinet-service", log)
	if err != nil {
		return nil, err
	}

	return &CabinetEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// NewCabinetEventPublisherWith wraps an existing publisher (used in tests)
func NewCabinetEventPublisherWith(p Publisher, log *logger.Logger) *CabinetEventPublisher {
	return &CabinetEventPublisher{
		publisher: p,
		logger:    log,
	}
}

// PublishMedicineScanned publishes a medicine scanned event
func (p *CabinetEventPublisher) PublishMedicineScanned(ctx context.Context, result *scan.Result, name string, entry *repository.StockEntry) {
	if p == nil {
		return
	}

	data := messaging.MedicineScannedEvent{
		CIP13:       result.ProductCode,
		Name:        name,
		ExpiryDate:  result.ExpiryDate,
		BatchNumber: result.BatchNumber,
		Source:      string(result.Source),
		EntryID:     entry.ID,
		NewQuantity: entry.Quantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMedicineScanned, data); err != nil {
		p.logger.Error().Err(err).Str("cip13", result.ProductCode).Msg("failed to publish medicine scanned event")
	}
}

// PublishStockUpdated publishes a stock updated event
func (p *CabinetEventPublisher) PublishStockUpdated(ctx context.Context, entry *repository.StockEntry, adjustment int, reason string) {
	if p == nil {
		return
	}

	data := messaging.StockUpdatedEvent{
		EntryID:     entry.ID,
		CIP13:       entry.CIP13,
		Adjustment:  adjustment,
		NewQuantity: entry.Quantity,
		Reason:      reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("failed to publish stock updated event")
	}

	if entry.Quantity == 0 {
		if err := p.publisher.Publish(ctx, messaging.EventStockDepleted, data); err != nil {
			p.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("failed to publish stock depleted event")
		}
	}
}

// PublishAlertGenerated publishes an alert generated event
func (p *CabinetEventPublisher) PublishAlertGenerated(ctx context.Context, alert *repository.Alert) {
	if p == nil {
		return
	}

	entryID := ""
	if alert.EntryID != nil {
		entryID = *alert.EntryID
	}

	data := messaging.AlertGeneratedEvent{
		AlertID:    alert.ID,
		AlertType:  alert.AlertType,
		Severity:   alert.Severity,
		Message:    alert.Message,
		CIP13:      alert.CIP13,
		EntryID:    entryID,
		ExpiryDate: alert.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert generated event")
	}
}
