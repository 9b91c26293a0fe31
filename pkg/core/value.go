package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// Value
// =============================================================================

// ValueKind identifies which variant a Value holds.
type ValueKind int

// Value kinds.
const (
	KindNull ValueKind = iota
	KindString
	KindNumber
)

// String returns the string representation of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Value is a single result cell: null, a string, or a number.
// The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// String returns the display form of v. Null renders as NULL and numbers
// use the shortest representation that round-trips.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	default:
		return "NULL"
	}
}

// Quoted returns v formatted for diagnostics: strings are quoted, numbers
// and null are bare.
func (v Value) Quoted() string {
	if v.kind == KindString {
		return strconv.Quote(v.str)
	}
	return v.String()
}

// FormatNumber formats n without a trailing ".0" for integral values.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// MarshalJSON encodes v as JSON null, string or number.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes JSON null, string or number into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = String(x)
	case float64:
		*v = Number(x)
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}
