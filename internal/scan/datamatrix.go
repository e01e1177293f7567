package scan

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// groupSeparator delimits variable-length field values (ASCII GS, code 29).
const groupSeparator = '\x1d'

// minPayloadLength is the shortest normalized payload worth scanning:
// AI 01 plus its 14-digit value.
const minPayloadLength = 16

// Application Identifiers this decoder interprets.
const (
	aiTradeItem = "01"
	aiBatch     = "10"
	aiExpiry    = "17"
	aiSerial    = "21"
)

// symbologyPrefixes are the 3-character markers readers prepend to announce
// GS1 framing: GS1 DataMatrix, GS1 QR Code and GS1-128.
var symbologyPrefixes = [...]string{"]d2", "]Q3", "]C1"}

// aiKind distinguishes fixed-length AIs from GS-delimited variable ones.
type aiKind int

const (
	aiFixed aiKind = iota
	aiVariable
)

// aiSpec describes how to consume one AI's value. New AIs are supported by
// extending the table, not the scanning loop.
type aiSpec struct {
	kind   aiKind
	length int // value length for fixed AIs, 0 for variable
}

var aiTable = map[string]aiSpec{
	aiTradeItem: {aiFixed, 14},
	"02":        {aiFixed, 14},
	"11":        {aiFixed, 6},
	"13":        {aiFixed, 6},
	"15":        {aiFixed, 6},
	"16":        {aiFixed, 6},
	aiExpiry:    {aiFixed, 6},
	aiBatch:     {aiVariable, 0},
	aiSerial:    {aiVariable, 0},
	"22":        {aiVariable, 0},
	"30":        {aiVariable, 0},
	"37":        {aiVariable, 0},
}

// Normalize strips a symbology prefix and repairs a missing leading AI.
// The second return value is false when the input is not recognizable as a
// GS1 payload, with or without its AI 01 prefix.
func (d *Decoder) Normalize(raw string) (string, bool) {
	data := raw
	for _, prefix := range symbologyPrefixes {
		if strings.HasPrefix(data, prefix) {
			data = data[len(prefix):]
			break
		}
	}

	if strings.HasPrefix(data, aiTradeItem) {
		return data, true
	}

	// Some readers drop the AI from a bare GTIN-14. A CIP13-bearing GTIN
	// starts with indicator digit 0 followed by the market prefix. Fields
	// after the GTIN are kept as-is and left to the field scanner.
	if len(data) >= 14 && isDigits(data[:14]) && strings.HasPrefix(data, "0"+d.MarketPrefix) {
		return aiTradeItem + data, true
	}

	return "", false
}

// scanFields walks the normalized payload extracting AI-tagged values.
// It stops at the first unknown AI and reports whether input remained,
// returning whatever fields were accumulated (partial success is fine).
// A duplicate AI overwrites the earlier value.
func scanFields(data string) (fields map[string]string, truncated bool) {
	fields = make(map[string]string)
	pos := 0

	for pos+2 <= len(data) {
		ai := data[pos : pos+2]
		spec, known := aiTable[ai]
		if !known {
			return fields, true
		}
		pos += 2

		switch spec.kind {
		case aiFixed:
			end := pos + spec.length
			if end > len(data) {
				end = len(data)
			}
			fields[ai] = data[pos:end]
			pos = end

		case aiVariable:
			end := strings.IndexByte(data[pos:], groupSeparator)
			if end < 0 {
				fields[ai] = data[pos:]
				pos = len(data)
			} else {
				fields[ai] = data[pos : pos+end]
				pos += end + 1 // skip the separator
			}
		}
	}

	return fields, false
}

// ParseGS1 decodes a raw symbol string into a GS1Result. It never fails:
// unrecognizable or too-short input yields the zero result with
// IsGS1Structured false.
func (d *Decoder) ParseGS1(raw string) GS1Result {
	data, ok := d.Normalize(raw)
	if !ok || len(data) < minPayloadLength {
		return GS1Result{}
	}

	fields, truncated := scanFields(data)

	result := GS1Result{
		IsGS1Structured: true,
		Truncated:       truncated,
	}

	if gtin, ok := fields[aiTradeItem]; ok {
		result.TradeItemCode = &gtin
		if len(gtin) == 14 {
			cip13 := gtin[1:]
			result.ProductCode = &cip13
		}
	}

	if value, ok := fields[aiExpiry]; ok {
		if date, ok := d.interpretExpiry(value); ok {
			result.ExpiryDate = &date
		}
	}

	if batch, ok := fields[aiBatch]; ok {
		result.BatchNumber = &batch
	}
	if serial, ok := fields[aiSerial]; ok {
		result.SerialNumber = &serial
	}

	return result
}

// interpretExpiry converts a 6-digit YYMMDD value into an ISO date.
// DD of 00 is the GS1 convention for "last day of the month". A literal DD
// that is not a legal day of the resolved month is rejected.
func (d *Decoder) interpretExpiry(value string) (string, bool) {
	if len(value) != 6 || !isDigits(value) {
		return "", false
	}

	yy, err1 := strconv.Atoi(value[0:2])
	mm, err2 := strconv.Atoi(value[2:4])
	dd, err3 := strconv.Atoi(value[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}

	if mm < 1 || mm > 12 {
		return "", false
	}

	year := 1900 + yy
	if yy < d.CenturyPivot {
		year = 2000 + yy
	}

	if dd == 0 {
		// Day zero of the next month is the last day of this one.
		last := time.Date(year, time.Month(mm)+1, 0, 0, 0, 0, 0, time.UTC)
		dd = last.Day()
	} else {
		// time.Date normalizes out-of-range days instead of rejecting
		// them, so verify by round-trip.
		t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
		if t.Year() != year || t.Month() != time.Month(mm) || t.Day() != dd {
			return "", false
		}
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, mm, dd), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
