// Package scan decodes raw barcode scanner output into structured medicine data.
//
// French pharmaceutical packaging carries a GS1 DataMatrix whose payload is a
// sequence of Application Identifier (AI) tagged fields: the 14-digit trade
// item code (GTIN, AI 01), the expiry date (AI 17), the batch number (AI 10)
// and sometimes a serial number (AI 21). Older boxes carry a plain EAN-13
// barcode holding the bare CIP13 product code.
//
// The decoder works on text already produced by the device's symbol reader.
// It never touches images and never returns an error for malformed input:
// anything unrecognizable yields a nil/false result and the caller falls back
// to manual search.
package scan

// Source tags the provenance of a classified scan.
type Source string

const (
	// SourceStructured means the code was decoded from GS1 AI framing.
	SourceStructured Source = "structured"
	// SourcePlain means the code was a bare 13-digit product barcode.
	SourcePlain Source = "plain"
	// SourceManual is used by the inventory layer for hand-entered codes.
	SourceManual Source = "manual"
)

// GS1Result holds the fields decoded from a GS1 DataMatrix payload.
// Optional fields are nil when absent or unparseable. ProductCode is non-nil
// only when TradeItemCode is present with exactly 14 digits.
type GS1Result struct {
	// TradeItemCode is the full 14-digit GTIN as scanned (AI 01).
	TradeItemCode *string `json:"trade_item_code,omitempty"`
	// ProductCode is the 13-digit CIP13, the GTIN minus its indicator digit.
	ProductCode *string `json:"product_code,omitempty"`
	// ExpiryDate is an ISO calendar date (YYYY-MM-DD) from AI 17.
	ExpiryDate *string `json:"expiry_date,omitempty"`
	// BatchNumber is the free-text lot identifier from AI 10.
	BatchNumber *string `json:"batch_number,omitempty"`
	// SerialNumber is the free-text serial from AI 21.
	SerialNumber *string `json:"serial_number,omitempty"`
	// IsGS1Structured is true only when valid AI framing was recognized.
	IsGS1Structured bool `json:"is_gs1_structured"`
	// Truncated is true when the field walk stopped at an unknown AI,
	// so trailing fields may have been dropped.
	Truncated bool `json:"truncated"`
}

// Result is the unified outcome consumed by the inventory and lookup layers.
type Result struct {
	ProductCode  string  `json:"product_code"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
	BatchNumber  *string `json:"batch_number,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Source       Source  `json:"source"`
}

// Decoder turns raw scanner text into structured results. The zero value is
// not usable; construct with NewDecoder and override fields as needed.
// Decoders are stateless and safe for concurrent use.
type Decoder struct {
	// CenturyPivot resolves two-digit years: YY below the pivot maps to
	// 2000+YY, otherwise 1900+YY. The default of 50 misdates anything past
	// 2049; it is a documented limitation, adjustable via configuration.
	CenturyPivot int
	// MarketPrefix is the 3-digit national issuer prefix of CIP13 codes.
	MarketPrefix string
}

// NewDecoder returns a decoder with the French-market defaults.
func NewDecoder() *Decoder {
	return &Decoder{
		CenturyPivot: 50,
		MarketPrefix: "340",
	}
}
