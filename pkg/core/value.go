package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind identifies the dynamic type of a table cell.
type ValueKind uint8

// Value kinds.
const (
	KindNull ValueKind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is a single, dynamically typed table cell.
//
// On the wire a Value is a plain JSON scalar: null, a number, or a string.
// Blobs are not transported; Blob renders them as the text "<BLOB n bytes>".
// The zero Value is NULL.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInteger, i: v} }

// Real returns a floating point value. NaN and infinities become 0.
func Real(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return Value{kind: KindReal, f: v}
}

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Blob returns the placeholder text for binary content of the given bytes.
func Blob(b []byte) Value {
	return Value{kind: KindBlob, s: fmt.Sprintf("<BLOB %d bytes>", len(b))}
}

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload and whether v is an integer.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInteger }

// Float64 returns the numeric payload of an integer or real value.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindReal:
		return v.f, true
	default:
		return 0, false
	}
}

// Any returns the Go representation of v: nil, int64, float64 or string.
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText, KindBlob:
		return v.s
	default:
		return nil
	}
}

// String formats v for display. NULL prints as "NULL".
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText, KindBlob:
		return v.s
	default:
		return "NULL"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindReal:
		b, err := json.Marshal(v.f)
		if err != nil {
			return nil, err
		}
		// Keep integral reals distinguishable from integers on the wire.
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, ".0"...)
		}
		return b, nil
	case KindText, KindBlob:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML encodes the cell as a plain YAML scalar.
func (v Value) MarshalYAML() (any, error) {
	return v.Any(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
// Integral numbers decode as integers, other numbers as reals, strings as text.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}

	switch x := raw.(type) {
	case nil:
		*v = Null()
	case json.Number:
		if i, err := x.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return fmt.Errorf("invalid numeric value %q: %w", x.String(), err)
		}
		*v = Real(f)
	case string:
		*v = Text(x)
	case bool:
		if x {
			*v = Int(1)
		} else {
			*v = Int(0)
		}
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}
