package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicab/medicab-backend/internal/inventory/events"
	"github.com/medicab/medicab-backend/internal/inventory/repository"
	"github.com/medicab/medicab-backend/internal/inventory/service"
	"github.com/medicab/medicab-backend/pkg/database"
	"github.com/medicab/medicab-backend/pkg/logger"
	"github.com/medicab/medicab-backend/pkg/messaging"
	"github.com/medicab/medicab-backend/pkg/testutil"
)

type scannerFixture struct {
	scanner   *service.ExpiryScanner
	mockDB    *testutil.MockDB
	publisher *testutil.MockPublisher
}

func newScannerFixture(t *testing.T, warningDays int) *scannerFixture {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "development")
	db := database.Wrap(mockDB.DB, log)
	mockPub := testutil.NewMockPublisher()

	scanner := service.NewExpiryScanner(
		repository.NewStockRepository(db),
		repository.NewAlertRepository(db),
		events.NewCabinetEventPublisherWith(mockPub, log),
		warningDays,
		log,
	)

	return &scannerFixture{
		scanner:   scanner,
		mockDB:    mockDB,
		publisher: mockPub,
	}
}

func stockColumns() []string {
	return []string{
		"id", "cip13", "quantity", "expiry_date", "batch_number", "serial_number", "source", "created_at", "updated_at",
	}
}

func TestExpiryScanner_ExpiredEntryRaisesCriticalAlert(t *testing.T) {
	f := newScannerFixture(t, 30)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	expired := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs(now.AddDate(0, 0, 30)).
		WillReturnRows(sqlmock.NewRows(stockColumns()).
			AddRow("entry-1", "3400934012308", 2, expired, nil, nil, "structured", now, now))

	f.mockDB.Mock.ExpectQuery("SELECT EXISTS").
		WithArgs(repository.AlertTypeExpired, "entry-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	f.mockDB.Mock.ExpectQuery("INSERT INTO alerts").
		WithArgs(testutil.AnyUUID{}, repository.AlertTypeExpired, service.SeverityCritical,
			"medicine 3400934012308 expired on 2026-08-01", "3400934012308", "entry-1", expired).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	created, err := f.scanner.Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	f.publisher.AssertEventPublished(t, messaging.EventAlertGenerated)
	f.mockDB.ExpectationsWereMet(t)
}

func TestExpiryScanner_ExpiringSoonRaisesWarning(t *testing.T) {
	f := newScannerFixture(t, 30)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	soon := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs(now.AddDate(0, 0, 30)).
		WillReturnRows(sqlmock.NewRows(stockColumns()).
			AddRow("entry-2", "3400930000001", 1, soon, nil, nil, "plain", now, now))

	f.mockDB.Mock.ExpectQuery("SELECT EXISTS").
		WithArgs(repository.AlertTypeExpiringSoon, "entry-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	f.mockDB.Mock.ExpectQuery("INSERT INTO alerts").
		WithArgs(testutil.AnyUUID{}, repository.AlertTypeExpiringSoon, service.SeverityWarning,
			"medicine 3400930000001 expires on 2026-09-10", "3400930000001", "entry-2", soon).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	created, err := f.scanner.Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestExpiryScanner_ExistingAlertIsNotDuplicated(t *testing.T) {
	f := newScannerFixture(t, 30)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	expired := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs(now.AddDate(0, 0, 30)).
		WillReturnRows(sqlmock.NewRows(stockColumns()).
			AddRow("entry-1", "3400934012308", 2, expired, nil, nil, "structured", now, now))

	f.mockDB.Mock.ExpectQuery("SELECT EXISTS").
		WithArgs(repository.AlertTypeExpired, "entry-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	created, err := f.scanner.Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestExpiryScanner_NothingExpiring(t *testing.T) {
	f := newScannerFixture(t, 30)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs(now.AddDate(0, 0, 30)).
		WillReturnRows(sqlmock.NewRows(stockColumns()))

	created, err := f.scanner.Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	f.publisher.AssertNoEventsPublished(t)
}
