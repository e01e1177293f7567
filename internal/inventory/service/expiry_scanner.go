package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medicab/medicab-backend/internal/inventory/events"
	"github.com/medicab/medicab-backend/internal/inventory/repository"
	"github.com/medicab/medicab-backend/pkg/logger"
)

// Alert severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// ExpiryScanner walks the cabinet stock and raises alerts for entries
// that are expired or expire within the warning window.
type ExpiryScanner struct {
	stockRepo   *repository.StockRepository
	alertRepo   *repository.AlertRepository
	publisher   *events.CabinetEventPublisher
	warningDays int
	logger      *logger.Logger
}

// NewExpiryScanner creates a new expiry scanner
func NewExpiryScanner(
	stockRepo *repository.StockRepository,
	alertRepo *repository.AlertRepository,
	publisher *events.CabinetEventPublisher,
	warningDays int,
	log *logger.Logger,
) *ExpiryScanner {
	return &ExpiryScanner{
		stockRepo:   stockRepo,
		alertRepo:   alertRepo,
		publisher:   publisher,
		warningDays: warningDays,
		logger:      log,
	}
}

// Scan evaluates all dated stock against the current time and creates
// alerts that do not already exist for the same entry and type. Returns
// the number of alerts created.
func (s *ExpiryScanner) Scan(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, s.warningDays)

	entries, err := s.stockRepo.ListExpiringBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, entry := range entries {
		if entry.ExpiryDate == nil {
			continue
		}

		alertType := repository.AlertTypeExpiringSoon
		severity := SeverityWarning
		if !entry.ExpiryDate.After(now) {
			alertType = repository.AlertTypeExpired
			severity = SeverityCritical
		}

		exists, err := s.alertRepo.ExistsByTypeAndEntry(ctx, alertType, entry.ID)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		alert := &repository.Alert{
			AlertType:  alertType,
			Severity:   severity,
			Message:    alertMessage(alertType, entry),
			CIP13:      entry.CIP13,
			EntryID:    &entry.ID,
			ExpiryDate: entry.ExpiryDate,
		}
		if err := s.alertRepo.Create(ctx, alert); err != nil {
			return created, err
		}
		created++

		s.publisher.PublishAlertGenerated(ctx, alert)

		s.logger.Info().
			Str("entry_id", entry.ID).
			Str("cip13", entry.CIP13).
			Str("alert_type", alertType).
			Msg("expiry alert generated")
	}

	return created, nil
}

func alertMessage(alertType string, entry *repository.StockEntry) string {
	date := entry.ExpiryDate.Format("2006-01-02")
	if alertType == repository.AlertTypeExpired {
		return fmt.Sprintf("medicine %s expired on %s", entry.CIP13, date)
	}
	return fmt.Sprintf("medicine %s expires on %s", entry.CIP13, date)
}
