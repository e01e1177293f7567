package scan_test

import (
	"testing"

	"github.com/medicab/medicab-backend/internal/scan"
)

func TestDecoder_Classify_Structured(t *testing.T) {
	d := scan.NewDecoder()

	result := d.Classify("01034009340123081723063010ABC123")
	if result == nil {
		t.Fatal("Classify() = nil, want structured result")
	}

	if result.Source != scan.SourceStructured {
		t.Errorf("Source = %q, want %q", result.Source, scan.SourceStructured)
	}
	if result.ProductCode != "3400934012308" {
		t.Errorf("ProductCode = %q, want %q", result.ProductCode, "3400934012308")
	}
	if got := strValue(t, "ExpiryDate", result.ExpiryDate); got != "2023-06-30" {
		t.Errorf("ExpiryDate = %q, want %q", got, "2023-06-30")
	}
	if got := strValue(t, "BatchNumber", result.BatchNumber); got != "ABC123" {
		t.Errorf("BatchNumber = %q, want %q", got, "ABC123")
	}
}

func TestDecoder_Classify_StructuredWithInvalidDate(t *testing.T) {
	d := scan.NewDecoder()

	// June 31st does not exist; the scan is still usable without an expiry
	result := d.Classify("]d201034009340123081723063110LOT1")
	if result == nil {
		t.Fatal("Classify() = nil, want structured result")
	}

	if result.Source != scan.SourceStructured {
		t.Errorf("Source = %q, want %q", result.Source, scan.SourceStructured)
	}
	if result.ExpiryDate != nil {
		t.Errorf("ExpiryDate = %q, want nil", *result.ExpiryDate)
	}
	if got := strValue(t, "BatchNumber", result.BatchNumber); got != "LOT1" {
		t.Errorf("BatchNumber = %q, want %q", got, "LOT1")
	}
}

func TestDecoder_Classify_PlainBarcode(t *testing.T) {
	d := scan.NewDecoder()

	result := d.Classify("3400930000001")
	if result == nil {
		t.Fatal("Classify() = nil, want plain result")
	}

	if result.Source != scan.SourcePlain {
		t.Errorf("Source = %q, want %q", result.Source, scan.SourcePlain)
	}
	if result.ProductCode != "3400930000001" {
		t.Errorf("ProductCode = %q, want %q", result.ProductCode, "3400930000001")
	}
	if result.ExpiryDate != nil {
		t.Errorf("ExpiryDate = %q, want nil", *result.ExpiryDate)
	}
	if result.BatchNumber != nil {
		t.Errorf("BatchNumber = %q, want nil", *result.BatchNumber)
	}
}

func TestDecoder_Classify_PlainBarcodeTrimsWhitespace(t *testing.T) {
	d := scan.NewDecoder()

	result := d.Classify("  3400930000001\n")
	if result == nil {
		t.Fatal("Classify() = nil, want plain result")
	}
	if result.ProductCode != "3400930000001" {
		t.Errorf("ProductCode = %q, want %q", result.ProductCode, "3400930000001")
	}
}

func TestDecoder_Classify_Rejected(t *testing.T) {
	d := scan.NewDecoder()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty string", ""},
		{"whitespace only", "   "},
		{"arbitrary text", "hello world"},
		{"13 digits with foreign prefix", "4012345678901"},
		{"12 digits", "340093000000"},
		{"14 digits plain", "34009300000012"},
		{"short GS1-like payload", "010340093"},
		{"plain code with letter", "340093000000A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := d.Classify(tt.raw); result != nil {
				t.Errorf("Classify(%q) = %+v, want nil", tt.raw, result)
			}
		})
	}
}

// A structured scan with a partial payload that never yields a product code
// must fall through to the plain-barcode branch, then to nil.
func TestDecoder_Classify_StructuredWithoutProductCodeFallsThrough(t *testing.T) {
	d := scan.NewDecoder()

	// Valid framing but the GTIN value is cut short
	if result := d.Classify("010340093401230"); result != nil {
		t.Errorf("Classify() = %+v, want nil", result)
	}
}

func TestDecoder_ClassifyManual(t *testing.T) {
	d := scan.NewDecoder()

	tests := []struct {
		name string
		code string
		want bool
	}{
		{"valid CIP13", "3400930000001", true},
		{"valid CIP13 with whitespace", "  3400930000001  ", true},
		{"foreign prefix", "4012345678901", false},
		{"too short", "34009300", false},
		{"non-digits", "340093000000A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.ClassifyManual(tt.code)
			if tt.want {
				if result == nil {
					t.Fatalf("ClassifyManual(%q) = nil, want result", tt.code)
				}
				if result.Source != scan.SourceManual {
					t.Errorf("Source = %q, want %q", result.Source, scan.SourceManual)
				}
			} else if result != nil {
				t.Errorf("ClassifyManual(%q) = %+v, want nil", tt.code, result)
			}
		})
	}
}

func TestDecoder_Classify_CarriesSerialNumber(t *testing.T) {
	d := scan.NewDecoder()

	result := d.Classify("010340093401230821SER987")
	if result == nil {
		t.Fatal("Classify() = nil, want structured result")
	}
	if result.SerialNumber == nil || *result.SerialNumber != "SER987" {
		t.Errorf("SerialNumber = %v, want %q", result.SerialNumber, "SER987")
	}
}
