package scan

import "strings"

// cip13Length is the length of a French national product code.
const cip13Length = 13

// Classify decides what kind of code was scanned and returns a unified
// result, or nil when the text matches neither a GS1 payload nor a plain
// product barcode. A nil result is the expected outcome for arbitrary
// non-medicine scans and means "fall back to manual search".
func (d *Decoder) Classify(raw string) *Result {
	if raw == "" {
		return nil
	}

	gs1 := d.ParseGS1(raw)
	if gs1.IsGS1Structured && gs1.ProductCode != nil {
		return &Result{
			ProductCode:  *gs1.ProductCode,
			ExpiryDate:   gs1.ExpiryDate,
			BatchNumber:  gs1.BatchNumber,
			SerialNumber: gs1.SerialNumber,
			Source:       SourceStructured,
		}
	}

	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == cip13Length && isDigits(trimmed) && strings.HasPrefix(trimmed, d.MarketPrefix) {
		return &Result{
			ProductCode: trimmed,
			Source:      SourcePlain,
		}
	}

	return nil
}

// ClassifyManual validates a hand-typed product code. Only a bare CIP13
// for the configured market is accepted; nil means the input is not one.
func (d *Decoder) ClassifyManual(code string) *Result {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != cip13Length || !isDigits(trimmed) || !strings.HasPrefix(trimmed, d.MarketPrefix) {
		return nil
	}

	return &Result{
		ProductCode: trimmed,
		Source:      SourceManual,
	}
}
