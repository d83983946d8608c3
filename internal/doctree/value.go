package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one node of a document tree. The zero Value is null.
//
// Mapping values share their underlying map when copied. Document stores
// and returns deep copies, so a Value handed to or obtained from a Document
// never aliases the tree.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	seq  []Value
	m    map[string]Value
}

func NullValue() Value { return Value{} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue stores f using the shortest representation that round-trips.
// JSON has no NaN or infinity; NumberValue panics on them.
func NumberValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic("doctree: non-finite number " + strconv.FormatFloat(f, 'g', -1, 64))
	}
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

func IntValue(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// SequenceValue copies items into a new sequence.
func SequenceValue(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// MappingValue returns a new empty mapping.
func MappingValue() Value {
	return Value{kind: KindMapping, m: make(map[string]Value)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsMapping() bool { return v.kind == KindMapping }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Number returns the numeric value when v is a number.
func (v Value) Number() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// Literal returns the JSON text of a number value.
func (v Value) Literal() (json.Number, bool) { return v.num, v.kind == KindNumber }

// Items returns the elements of a sequence, or nil.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Len is the number of entries of a mapping or sequence.
func (v Value) Len() int {
	switch v.kind {
	case KindMapping:
		return len(v.m)
	case KindSequence:
		return len(v.seq)
	}
	return 0
}

// Field returns the child stored under key when v is a mapping.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// Keys returns the sorted keys of a mapping.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With stores child under key. v must be a mapping.
func (v Value) With(key string, child Value) Value {
	if v.kind != KindMapping {
		panic("doctree: With on " + v.kind.String())
	}
	v.m[key] = child
	return v
}

// Any converts v to the shapes produced by decoding JSON with UseNumber:
// nil, bool, json.Number, string, []any and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Any()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for k, child := range v.m {
			out[k] = child.Any()
		}
		return out
	}
	return nil
}

// FromAny converts decoded JSON or plain Go values into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		if _, err := t.Float64(); err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Value{kind: KindNumber, num: t}, nil
	case float64:
		return finiteNumber(t)
	case float32:
		return finiteNumber(float64(t))
	case int:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint32:
		return IntValue(int64(t)), nil
	case string:
		return StringValue(t), nil
	case []any:
		seq := make([]Value, len(t))
		for i, item := range t {
			child, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			seq[i] = child
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case map[string]any:
		m := MappingValue()
		for k, item := range t {
			child, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			m.m[k] = child
		}
		return m, nil
	}
	return Value{}, fmt.Errorf("unsupported type %T", x)
}

func finiteNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("non-finite number %v", f)
	}
	return NumberValue(f), nil
}

// clone returns a deep copy of v. Scalars are returned as is.
func (v Value) clone() Value {
	switch v.kind {
	case KindSequence:
		seq := make([]Value, len(v.seq))
		for i, item := range v.seq {
			seq[i] = item.clone()
		}
		v.seq = seq
	case KindMapping:
		m := make(map[string]Value, len(v.m))
		for k, child := range v.m {
			m[k] = child.clone()
		}
		v.m = m
	}
	return v
}

// Parse decodes one JSON text into a Value, keeping number literals intact.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("unexpected data after JSON value")
	}
	return FromAny(x)
}

// MarshalJSON writes v without HTML escaping.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.Any()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
