package thumbnail

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawRow is one measurement as delivered by the query layer. Nothing
// about its shape is trusted; every field stays a Scalar until the
// sanitizer has vetted it.
type RawRow struct {
	T                 Scalar `json:"t"`
	Y                 Scalar `json:"y"`
	ParameterName     Scalar `json:"parameter_name"`
	Unit              Scalar `json:"unit"`
	ReferenceLower    Scalar `json:"reference_lower"`
	ReferenceUpper    Scalar `json:"reference_upper"`
	IsOutOfRange      Scalar `json:"is_out_of_range"`
	IsValueOutOfRange Scalar `json:"is_value_out_of_range"`
}

// MarshalJSON keeps absent fields out of the encoded object so a row
// survives a decode/encode round trip unchanged.
func (r RawRow) MarshalJSON() ([]byte, error) {
	obj := make(map[string]Scalar, 8)
	put := func(key string, s Scalar) {
		if s.Present() {
			obj[key] = s
		}
	}
	put("t", r.T)
	put("y", r.Y)
	put("parameter_name", r.ParameterName)
	put("unit", r.Unit)
	put("reference_lower", r.ReferenceLower)
	put("reference_upper", r.ReferenceUpper)
	put("is_out_of_range", r.IsOutOfRange)
	put("is_value_out_of_range", r.IsValueOutOfRange)
	return json.Marshal(obj)
}

// Row is a sanitized measurement: epoch-millisecond timestamp, finite
// value, non-empty series name.
type Row struct {
	TimeMs         int64
	Value          float64
	SeriesName     string
	Unit           string
	ReferenceLower *float64
	ReferenceUpper *float64
}

// SanitizeRows keeps the rows whose timestamp, value, series name, and
// unit can all be trusted, coercing time and value to canonical forms.
func SanitizeRows(raw []RawRow) []Row {
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row, ok := sanitizeRow(r)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func sanitizeRow(r RawRow) (Row, bool) {
	ms, ok := epochMillis(r.T)
	if !ok {
		return Row{}, false
	}

	value, ok := finiteValue(r.Y)
	if !ok {
		return Row{}, false
	}

	name, ok := r.ParameterName.AsText()
	if !ok || name == "" {
		return Row{}, false
	}

	// 单位允许缺省或空文本，其余类型一律拒绝。
	unit := ""
	switch r.Unit.Kind {
	case KindAbsent:
	case KindText:
		unit = r.Unit.Text
	default:
		return Row{}, false
	}

	row := Row{TimeMs: ms, Value: value, SeriesName: name, Unit: unit}
	if bound, ok := numericBound(r.ReferenceLower); ok {
		row.ReferenceLower = &bound
	}
	if bound, ok := numericBound(r.ReferenceUpper); ok {
		row.ReferenceUpper = &bound
	}
	return row, true
}

// SortRowsByTime returns a new slice ordered by ascending timestamp.
// Ties keep their incoming relative order.
func SortRowsByTime(rows []Row) []Row {
	sorted := append([]Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeMs < sorted[j].TimeMs
	})
	return sorted
}

const epochMillisBoundary = 1e12

// epochMillis coerces a flexible timestamp to epoch milliseconds.
// Numbers below 10^12 count as seconds, larger ones as milliseconds;
// text is tried first as a number, then as a date-time.
func epochMillis(s Scalar) (int64, bool) {
	switch s.Kind {
	case KindNumber:
		return epochFromNumber(s.Number)
	case KindText:
		text := strings.TrimSpace(s.Text)
		if text == "" {
			return 0, false
		}
		if n, err := strconv.ParseFloat(text, 64); err == nil {
			return epochFromNumber(n)
		}
		return parseTimeText(text)
	default:
		return 0, false
	}
}

func epochFromNumber(v float64) (int64, bool) {
	if !isFinite(v) {
		return 0, false
	}
	if v < epochMillisBoundary {
		return int64(math.Round(v * 1000)), true
	}
	return int64(math.Round(v)), true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02Z07:00",
}

// parseTimeText parses a date-time string. Timestamps without an
// explicit offset are UTC, so a "Z" is appended before parsing.
func parseTimeText(text string) (int64, bool) {
	candidate := text
	if !hasUTCOffset(candidate) {
		candidate += "Z"
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, candidate); err == nil {
			return ts.UnixMilli(), true
		}
	}
	return 0, false
}

// hasUTCOffset looks for a zone marker past the date portion.
func hasUTCOffset(text string) bool {
	if strings.HasSuffix(text, "Z") || strings.HasSuffix(text, "z") {
		return true
	}
	for i := len("2006-01-02") + 1; i < len(text); i++ {
		if text[i] == '+' || text[i] == '-' {
			return true
		}
	}
	return false
}

// finiteValue coerces a measurement value. Text is trimmed and a comma
// decimal separator rewritten to a dot before parsing; anything
// non-finite is rejected.
func finiteValue(s Scalar) (float64, bool) {
	switch s.Kind {
	case KindNumber:
		if isFinite(s.Number) {
			return s.Number, true
		}
	case KindText:
		text := strings.ReplaceAll(strings.TrimSpace(s.Text), ",", ".")
		if text == "" {
			return 0, false
		}
		if v, err := strconv.ParseFloat(text, 64); err == nil && isFinite(v) {
			return v, true
		}
	}
	return 0, false
}

func numericBound(s Scalar) (float64, bool) {
	v, ok := s.AsNumber()
	if !ok || !isFinite(v) {
		return 0, false
	}
	return v, true
}
