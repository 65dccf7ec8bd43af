package thumbnail

import (
	"encoding/json"
	"math"
)

// ScalarKind discriminates the runtime shape of a loosely typed field.
type ScalarKind int

const (
	KindAbsent ScalarKind = iota
	KindNull
	KindText
	KindNumber
	KindBool
	KindInvalid
)

// Scalar carries one untrusted input field. The zero value means the
// field was absent from the payload, which is distinct from an explicit
// null. Decoding never fails; unsupported shapes land on KindInvalid.
type Scalar struct {
	Kind   ScalarKind
	Text   string
	Number float64
	Bool   bool
}

// NewText wraps a text value.
func NewText(v string) Scalar {
	return Scalar{Kind: KindText, Text: v}
}

// NewNumber wraps a numeric value.
func NewNumber(v float64) Scalar {
	return Scalar{Kind: KindNumber, Number: v}
}

// NewBool wraps a boolean value.
func NewBool(v bool) Scalar {
	return Scalar{Kind: KindBool, Bool: v}
}

// NullScalar is an explicit null.
func NullScalar() Scalar {
	return Scalar{Kind: KindNull}
}

// AsText returns the text payload when the scalar holds text.
func (s Scalar) AsText() (string, bool) {
	if s.Kind != KindText {
		return "", false
	}
	return s.Text, true
}

// AsNumber returns the numeric payload when the scalar holds a number.
func (s Scalar) AsNumber() (float64, bool) {
	if s.Kind != KindNumber {
		return 0, false
	}
	return s.Number, true
}

// Present reports whether the field appeared in the payload at all.
func (s Scalar) Present() bool {
	return s.Kind != KindAbsent
}

// UnmarshalJSON classifies the raw value instead of erroring on shape.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*s = Scalar{Kind: KindInvalid}
		return nil
	}
	*s = scalarFromValue(v)
	return nil
}

// MarshalJSON renders the scalar back to its wire shape. Absent,
// invalid, and non-finite values all encode as null.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindText:
		return json.Marshal(s.Text)
	case KindNumber:
		if !isFinite(s.Number) {
			return []byte("null"), nil
		}
		return json.Marshal(s.Number)
	case KindBool:
		return json.Marshal(s.Bool)
	default:
		return []byte("null"), nil
	}
}

func scalarFromValue(v any) Scalar {
	switch t := v.(type) {
	case nil:
		return NullScalar()
	case string:
		return NewText(t)
	case bool:
		return NewBool(t)
	case float64:
		return NewNumber(t)
	case float32:
		return NewNumber(float64(t))
	case int:
		return NewNumber(float64(t))
	case int64:
		return NewNumber(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return NewNumber(f)
		}
		return Scalar{Kind: KindInvalid}
	default:
		return Scalar{Kind: KindInvalid}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
