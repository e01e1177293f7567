package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Scan events
	EventMedicineScanned = "cabinet.medicine.scanned"

	// Stock events
	EventStockUpdated  = "cabinet.stock.updated"
	EventStockDepleted = "cabinet.stock.depleted"

	// Alert events
	EventAlertGenerated = "cabinet.alert.generated"
)

// Exchange names
const (
	ExchangeCabinetEvents = "cabinet.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// MedicineScannedEvent is published when a scan is recorded into the cabinet
type MedicineScannedEvent struct {
	CIP13       string  `json:"cip13"`
	Name        string  `json:"name,omitempty"`
	ExpiryDate  *string `json:"expiry_date,omitempty"`
	BatchNumber *string `json:"batch_number,omitempty"`
	Source      string  `json:"source"`
	EntryID     string  `json:"entry_id"`
	NewQuantity int     `json:"new_quantity"`
}

// StockUpdatedEvent is published when a stock entry quantity changes
type StockUpdatedEvent struct {
	EntryID     string `json:"entry_id"`
	CIP13       string `json:"cip13"`
	Adjustment  int    `json:"adjustment"`
	NewQuantity int    `json:"new_quantity"`
	Reason      string `json:"reason,omitempty"`
}

// AlertGeneratedEvent is published when an expiry alert is generated
type AlertGeneratedEvent struct {
	AlertID    string     `json:"alert_id"`
	AlertType  string     `json:"alert_type"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	CIP13      string     `json:"cip13,omitempty"`
	EntryID    string     `json:"entry_id,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}
