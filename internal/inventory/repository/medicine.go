package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/medicab/medicab-backend/pkg/database"
	"github.com/medicab/medicab-backend/pkg/errors"
)

// Medicine is the locally cached descriptive record for a product code.
// Rows are refreshed from the public drug database on demand; FetchedAt
// records when the remote copy was taken.
type Medicine struct {
	CIP13                string    `db:"cip13" json:"cip13"`
	Name                 string    `db:"name" json:"name"`
	PharmaceuticalForm   *string   `db:"pharmaceutical_form" json:"pharmaceutical_form,omitempty"`
	AdministrationRoutes *string   `db:"administration_routes" json:"administration_routes,omitempty"`
	MarketingHolder      *string   `db:"marketing_holder" json:"marketing_holder,omitempty"`
	Presentation         *string   `db:"presentation" json:"presentation,omitempty"`
	FetchedAt            time.Time `db:"fetched_at" json:"fetched_at"`
}

// MedicineRepository handles medicine metadata persistence
type MedicineRepository struct {
	db *database.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// Upsert inserts or refreshes a medicine record
func (r *MedicineRepository) Upsert(ctx context.Context, m *Medicine) error {
	if m.FetchedAt.IsZero() {
		m.FetchedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO medicines (cip13, name, pharmaceutical_form, administration_routes, marketing_holder, presentation, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cip13) DO UPDATE SET
			name = EXCLUDED.name,
			pharmaceutical_form = EXCLUDED.pharmaceutical_form,
			administration_routes = EXCLUDED.administration_routes,
			marketing_holder = EXCLUDED.marketing_holder,
			presentation = EXCLUDED.presentation,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err := r.db.ExecContext(ctx, query,
		m.CIP13, m.Name, m.PharmaceuticalForm, m.AdministrationRoutes,
		m.MarketingHolder, m.Presentation, m.FetchedAt,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to upsert medicine", 500)
	}

	return nil
}

// GetByCIP13 gets a medicine by product code
func (r *MedicineRepository) GetByCIP13(ctx context.Context, cip13 string) (*Medicine, error) {
	var m Medicine

	query := `
		SELECT cip13, name, pharmaceutical_form, administration_routes, marketing_holder, presentation, fetched_at
		FROM medicines
		WHERE cip13 = $1
	`

	err := r.db.GetContext(ctx, &m, query, cip13)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("medicine")
	}
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get medicine", 500)
	}

	return &m, nil
}

// Search finds medicines whose name matches the query, for the manual
// search fallback when a scan is not recognized.
func (r *MedicineRepository) Search(ctx context.Context, name string, limit int) ([]*Medicine, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var medicines []*Medicine

	query := `
		SELECT cip13, name, pharmaceutical_form, administration_routes, marketing_holder, presentation, fetched_at
		FROM medicines
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &medicines, query, name, limit)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to search medicines", 500)
	}

	return medicines, nil
}
