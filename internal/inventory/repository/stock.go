package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/medicab/medicab-backend/pkg/database"
	"github.com/medicab/medicab-backend/pkg/errors"
)

// StockEntry is one line of the medicine cabinet: a product in a given
// batch/expiry combination and how many boxes of it are on the shelf.
type StockEntry struct {
	ID           string     `db:"id" json:"id"`
	CIP13        string     `db:"cip13" json:"cip13"`
	Quantity     int        `db:"quantity" json:"quantity"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	BatchNumber  *string    `db:"batch_number" json:"batch_number,omitempty"`
	SerialNumber *string    `db:"serial_number" json:"serial_number,omitempty"`
	Source       string     `db:"source" json:"source"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StockRepository handles cabinet stock persistence
type StockRepository struct {
	db *database.DB
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *database.DB) *StockRepository {
	return &StockRepository{db: db}
}

// Create creates a new stock entry
func (r *StockRepository) Create(ctx context.Context, entry *StockEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_entries (id, cip13, quantity, expiry_date, batch_number, serial_number, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.CIP13, entry.Quantity, entry.ExpiryDate,
		entry.BatchNumber, entry.SerialNumber, entry.Source,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create stock entry", 500)
	}

	return nil
}

// GetByID gets a stock entry by ID
func (r *StockRepository) GetByID(ctx context.Context, id string) (*StockEntry, error) {
	var entry StockEntry

	query := `
		SELECT id, cip13, quantity, expiry_date, batch_number, serial_number, source, created_at, updated_at
		FROM stock_entries
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &entry, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("stock entry")
	}
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get stock entry", 500)
	}

	return &entry, nil
}

// FindByScanKey finds the entry matching a scan's identity: same product,
// same expiry, same batch. NULLs compare as equal so two scans of a code
// without a batch land on the same entry.
func (r *StockRepository) FindByScanKey(ctx context.Context, cip13 string, expiry *time.Time, batch *string) (*StockEntry, error) {
	var entry StockEntry

	query := `
		SELECT id, cip13, quantity, expiry_date, batch_number, serial_number, source, created_at, updated_at
		FROM stock_entries
		WHERE cip13 = $1
		  AND expiry_date IS NOT DISTINCT FROM $2
		  AND batch_number IS NOT DISTINCT FROM $3
	`

	err := r.db.GetContext(ctx, &entry, query, cip13, expiry, batch)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("stock entry")
	}
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to find stock entry", 500)
	}

	return &entry, nil
}

// List lists stock entries with pagination
func (r *StockRepository) List(ctx context.Context, page, perPage int) ([]*StockEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stock_entries`); err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "failed to count stock entries", 500)
	}

	var entries []*StockEntry

	query := `
		SELECT id, cip13, quantity, expiry_date, batch_number, serial_number, source, created_at, updated_at
		FROM stock_entries
		ORDER BY expiry_date ASC NULLS LAST, created_at ASC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &entries, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "failed to list stock entries", 500)
	}

	return entries, total, nil
}

// AdjustQuantity changes an entry's quantity by delta and returns the new value.
// The quantity never goes below zero.
func (r *StockRepository) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	var newQuantity int

	query := `
		UPDATE stock_entries
		SET quantity = GREATEST(quantity + $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING quantity
	`

	err := r.db.QueryRowxContext(ctx, query, id, delta).Scan(&newQuantity)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("stock entry")
	}
	if err != nil {
		return 0, errors.Wrap(err, "DB_ERROR", "failed to adjust stock entry", 500)
	}

	return newQuantity, nil
}

// Delete removes a stock entry
func (r *StockRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stock_entries WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to delete stock entry", 500)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to delete stock entry", 500)
	}
	if rows == 0 {
		return errors.NotFound("stock entry")
	}

	return nil
}

// ListExpiringBefore lists entries with stock whose expiry falls on or
// before the cutoff. Entries without an expiry date are never reported.
func (r *StockRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*StockEntry, error) {
	var entries []*StockEntry

	query := `
		SELECT id, cip13, quantity, expiry_date, batch_number, serial_number, source, created_at, updated_at
		FROM stock_entries
		WHERE quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= $1
		ORDER BY expiry_date ASC
	`

	err := r.db.SelectContext(ctx, &entries, query, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list expiring stock", 500)
	}

	return entries, nil
}
