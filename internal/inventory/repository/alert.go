package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/medicab/medicab-backend/pkg/database"
	"github.com/medicab/medicab-backend/pkg/errors"
)

// Alert types
const (
	AlertTypeExpired      = "expired"
	AlertTypeExpiringSoon = "expiring_soon"
)

// Alert is an expiry warning attached to a stock entry
type Alert struct {
	ID             string     `db:"id" json:"id"`
	AlertType      string     `db:"alert_type" json:"alert_type"`
	Severity       string     `db:"severity" json:"severity"`
	Message        string     `db:"message" json:"message"`
	CIP13          string     `db:"cip13" json:"cip13"`
	EntryID        *string    `db:"entry_id" json:"entry_id,omitempty"`
	ExpiryDate     *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (id, alert_type, severity, message, cip13, entry_id, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.AlertType, alert.Severity, alert.Message,
		alert.CIP13, alert.EntryID, alert.ExpiryDate,
	).Scan(&alert.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create alert", 500)
	}

	return nil
}

// List lists alerts, optionally only the unacknowledged ones
func (r *AlertRepository) List(ctx context.Context, unacknowledgedOnly bool) ([]*Alert, error) {
	var alerts []*Alert

	query := `
		SELECT id, alert_type, severity, message, cip13, entry_id, expiry_date, acknowledged_at, created_at
		FROM alerts
	`
	if unacknowledgedOnly {
		query += ` WHERE acknowledged_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &alerts, query)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list alerts", 500)
	}

	return alerts, nil
}

// Acknowledge marks an alert as acknowledged
func (r *AlertRepository) Acknowledge(ctx context.Context, id string) error {
	var acknowledgedAt time.Time

	query := `
		UPDATE alerts
		SET acknowledged_at = NOW()
		WHERE id = $1 AND acknowledged_at IS NULL
		RETURNING acknowledged_at
	`

	err := r.db.QueryRowxContext(ctx, query, id).Scan(&acknowledgedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("alert")
	}
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to acknowledge alert", 500)
	}

	return nil
}

// ExistsByTypeAndEntry checks whether an unacknowledged alert of the given
// type already exists for the entry. Used for deduplication by the scanner.
func (r *AlertRepository) ExistsByTypeAndEntry(ctx context.Context, alertType, entryID string) (bool, error) {
	var exists bool

	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE alert_type = $1 AND entry_id = $2 AND acknowledged_at IS NULL
		)
	`

	err := r.db.GetContext(ctx, &exists, query, alertType, entryID)
	if err != nil {
		return false, errors.Wrap(err, "DB_ERROR", "failed to check existing alert", 500)
	}

	return exists, nil
}
