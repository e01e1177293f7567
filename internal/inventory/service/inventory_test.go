package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicab/medicab-backend/internal/inventory/events"
	"github.com/medicab/medicab-backend/internal/inventory/repository"
	"github.com/medicab/medicab-backend/internal/inventory/service"
	"github.com/medicab/medicab-backend/internal/lookup"
	"github.com/medicab/medicab-backend/internal/scan"
	"github.com/medicab/medicab-backend/pkg/database"
	"github.com/medicab/medicab-backend/pkg/errors"
	"github.com/medicab/medicab-backend/pkg/logger"
	"github.com/medicab/medicab-backend/pkg/messaging"
	"github.com/medicab/medicab-backend/pkg/testutil"
)

// full DataMatrix payload: GTIN 03400934012308, expiry 2023-06-30, batch ABC123
const fullPayload = "]d201034009340123081723063010ABC123"

type fakeLookup struct {
	medicine *lookup.Medicine
	err      error
	calls    int
}

func (f *fakeLookup) GetByCIP13(ctx context.Context, cip13 string) (*lookup.Medicine, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.medicine, nil
}

type serviceFixture struct {
	service   *service.InventoryService
	mockDB    *testutil.MockDB
	lookup    *fakeLookup
	publisher *testutil.MockPublisher
	cache     *lookup.Cache
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "development")
	db := database.Wrap(mockDB.DB, log)

	fake := &fakeLookup{}
	cache := lookup.NewCache(time.Minute)
	mockPub := testutil.NewMockPublisher()

	svc := service.NewInventoryService(
		scan.NewDecoder(),
		repository.NewMedicineRepository(db),
		repository.NewStockRepository(db),
		repository.NewAlertRepository(db),
		fake,
		cache,
		events.NewCabinetEventPublisherWith(mockPub, log),
		log,
	)

	return &serviceFixture{
		service:   svc,
		mockDB:    mockDB,
		lookup:    fake,
		publisher: mockPub,
		cache:     cache,
	}
}

func TestRecordScan_Unrecognized(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RecordScan(context.Background(), "hello world")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnrecognized))
	f.publisher.AssertNoEventsPublished(t)
}

func TestRecordScan_NewEntry(t *testing.T) {
	f := newFixture(t)

	f.lookup.medicine = &lookup.Medicine{
		CIP13: "3400934012308",
		Name:  "DOLIPRANE 1000 mg",
	}

	now := time.Now()
	expiry := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)

	// local metadata miss, then remote result cached into the table
	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM medicines").
		WithArgs("3400934012308").
		WillReturnError(sql.ErrNoRows)
	f.mockDB.Mock.ExpectExec("INSERT INTO medicines").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// no existing entry for this scan identity
	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs("3400934012308", expiry, "ABC123").
		WillReturnError(sql.ErrNoRows)
	f.mockDB.Mock.ExpectQuery("INSERT INTO stock_entries").
		WithArgs(testutil.AnyUUID{}, "3400934012308", 1, expiry, "ABC123", nil, "structured").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	outcome, err := f.service.RecordScan(context.Background(), fullPayload)
	require.NoError(t, err)
	assert.Equal(t, "3400934012308", outcome.Scan.ProductCode)
	assert.Equal(t, scan.SourceStructured, outcome.Scan.Source)
	assert.Equal(t, 1, outcome.Entry.Quantity)
	require.NotNil(t, outcome.Medicine)
	assert.Equal(t, "DOLIPRANE 1000 mg", outcome.Medicine.Name)

	f.publisher.AssertEventPublished(t, messaging.EventMedicineScanned)
	f.mockDB.ExpectationsWereMet(t)

	// the memory cache now holds the medicine
	assert.NotNil(t, f.cache.Get("3400934012308"))
}

func TestRecordScan_StoresSerialNumber(t *testing.T) {
	f := newFixture(t)

	f.cache.Set(&lookup.Medicine{CIP13: "3400934012308", Name: "DOLIPRANE 1000 mg"})

	now := time.Now()

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs("3400934012308", nil, nil).
		WillReturnError(sql.ErrNoRows)
	f.mockDB.Mock.ExpectQuery("INSERT INTO stock_entries").
		WithArgs(testutil.AnyUUID{}, "3400934012308", 1, nil, nil, "SER987", "structured").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	outcome, err := f.service.RecordScan(context.Background(), "010340093401230821SER987")
	require.NoError(t, err)
	require.NotNil(t, outcome.Entry.SerialNumber)
	assert.Equal(t, "SER987", *outcome.Entry.SerialNumber)

	f.mockDB.ExpectationsWereMet(t)
}

func TestRecordScan_ExistingEntryIncrements(t *testing.T) {
	f := newFixture(t)

	// pre-warm the cache so no metadata queries are issued
	f.cache.Set(&lookup.Medicine{CIP13: "3400934012308", Name: "DOLIPRANE 1000 mg"})

	now := time.Now()
	expiry := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "cip13", "quantity", "expiry_date", "batch_number", "serial_number", "source", "created_at", "updated_at",
	}).AddRow("entry-1", "3400934012308", 1, expiry, "ABC123", nil, "structured", now, now)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs("3400934012308", expiry, "ABC123").
		WillReturnRows(rows)
	f.mockDB.Mock.ExpectQuery("UPDATE stock_entries").
		WithArgs("entry-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))

	outcome, err := f.service.RecordScan(context.Background(), fullPayload)
	require.NoError(t, err)
	assert.Equal(t, "entry-1", outcome.Entry.ID)
	assert.Equal(t, 2, outcome.Entry.Quantity)
	assert.Equal(t, 0, f.lookup.calls)

	f.mockDB.ExpectationsWereMet(t)
}

func TestRecordScan_MedicineUnknownToDrugDatabase(t *testing.T) {
	f := newFixture(t)

	f.lookup.err = errors.NotFound("medicine")

	now := time.Now()

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM medicines").
		WithArgs("3400930000001").
		WillReturnError(sql.ErrNoRows)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs("3400930000001", nil, nil).
		WillReturnError(sql.ErrNoRows)
	f.mockDB.Mock.ExpectQuery("INSERT INTO stock_entries").
		WithArgs(testutil.AnyUUID{}, "3400930000001", 1, nil, nil, nil, "plain").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	// an unknown product is still stocked; only the metadata is missing
	outcome, err := f.service.RecordScan(context.Background(), "3400930000001")
	require.NoError(t, err)
	assert.Nil(t, outcome.Medicine)
	assert.Equal(t, scan.SourcePlain, outcome.Scan.Source)
}

func TestRecordScan_LookupOutage(t *testing.T) {
	f := newFixture(t)

	f.lookup.err = errors.Upstream(context.DeadlineExceeded)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM medicines").
		WithArgs("3400930000001").
		WillReturnError(sql.ErrNoRows)

	_, err := f.service.RecordScan(context.Background(), "3400930000001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
	f.publisher.AssertNoEventsPublished(t)
}

func TestPreviewScan_DoesNotPersist(t *testing.T) {
	f := newFixture(t)

	f.cache.Set(&lookup.Medicine{CIP13: "3400934012308", Name: "DOLIPRANE 1000 mg"})

	preview, err := f.service.PreviewScan(context.Background(), fullPayload)
	require.NoError(t, err)
	assert.Equal(t, "3400934012308", preview.Scan.ProductCode)
	require.NotNil(t, preview.Raw.TradeItemCode)
	assert.Equal(t, "03400934012308", *preview.Raw.TradeItemCode)

	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestAddManualEntry_InvalidCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AddManualEntry(context.Background(), "1234567890123", 1, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestAddManualEntry_NewEntry(t *testing.T) {
	f := newFixture(t)

	f.cache.Set(&lookup.Medicine{CIP13: "3400930000001", Name: "SPASFON"})

	now := time.Now()

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs("3400930000001", nil, nil).
		WillReturnError(sql.ErrNoRows)
	f.mockDB.Mock.ExpectQuery("INSERT INTO stock_entries").
		WithArgs(testutil.AnyUUID{}, "3400930000001", 3, nil, nil, nil, "manual").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	outcome, err := f.service.AddManualEntry(context.Background(), "3400930000001", 3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, scan.SourceManual, outcome.Scan.Source)
	assert.Equal(t, 3, outcome.Entry.Quantity)
}

func TestAdjustStock_PublishesDepletion(t *testing.T) {
	f := newFixture(t)

	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "cip13", "quantity", "expiry_date", "batch_number", "serial_number", "source", "created_at", "updated_at",
	}).AddRow("entry-1", "3400934012308", 1, nil, nil, nil, "structured", now, now)

	f.mockDB.Mock.ExpectQuery("SELECT (.+) FROM stock_entries").
		WithArgs("entry-1").
		WillReturnRows(rows)
	f.mockDB.Mock.ExpectQuery("UPDATE stock_entries").
		WithArgs("entry-1", -1).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(0))

	entry, err := f.service.AdjustStock(context.Background(), "entry-1", -1, "used last box")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Quantity)

	f.publisher.AssertEventPublished(t, messaging.EventStockUpdated)
	f.publisher.AssertEventPublished(t, messaging.EventStockDepleted)
}
