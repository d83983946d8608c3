package doctree

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("en.messages.hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p) != 3 || p[0] != "en" || p[2] != "hello" {
		t.Errorf("unexpected segments %q", p)
	}
	if p.String() != "en.messages.hello" {
		t.Errorf("expected %q, got %q", "en.messages.hello", p.String())
	}
}

func TestParsePath_Invalid(t *testing.T) {
	for _, s := range []string{"", ".", "a.", ".a", "a..b"} {
		if _, err := ParsePath(s); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ParsePath(%q): expected ErrInvalidPath, got %v", s, err)
		}
	}
}

func TestPath_Nest(t *testing.T) {
	out, err := json.Marshal(MustPath("a.b.c").Nest(StringValue("v")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"a":{"b":{"c":"v"}}}` {
		t.Errorf("unexpected nesting %s", out)
	}
}

func TestValue_ParseKeepsNumberLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"big": 12345678901234567890, "f": 0.1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"big":12345678901234567890,"f":0.1}` {
		t.Errorf("unexpected encoding %s", out)
	}
}

func TestValue_ParseRejectsTrailingData(t *testing.T) {
	if _, err := Parse([]byte(`{} {}`)); err == nil {
		t.Error("expected error for trailing data")
	}
}

func TestValue_MarshalNoHTMLEscape(t *testing.T) {
	out, err := StringValue("<a&b> é").MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"<a&b> é"` {
		t.Errorf("unexpected encoding %s", out)
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`[true, null, "x", 2]`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind() != KindSequence || v.Len() != 4 {
		t.Fatalf("expected sequence of 4, got %s of %d", v.Kind(), v.Len())
	}
	items := v.Items()
	if b, ok := items[0].Bool(); !ok || !b {
		t.Error("expected first item true")
	}
	if !items[1].IsNull() {
		t.Error("expected second item null")
	}
	if s, ok := items[2].Str(); !ok || s != "x" {
		t.Errorf("expected third item %q, got %q", "x", s)
	}
	if n, ok := items[3].Number(); !ok || n != 2 {
		t.Errorf("expected fourth item 2, got %v", n)
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("expected error for struct")
	}
	if _, err := FromAny(json.Number("abc")); err == nil {
		t.Error("expected error for invalid number literal")
	}
}

func TestValue_KeysSorted(t *testing.T) {
	v := MappingValue().With("b", NullValue()).With("a", NullValue())
	keys := v.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected [a b], got %v", keys)
	}
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() || v.Kind().String() != "null" {
		t.Errorf("expected zero value to be null, got %s", v.Kind())
	}
}

func TestFromAny_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := FromAny(f); err == nil {
			t.Errorf("expected error for %v", f)
		}
	}
	if _, err := FromAny(float32(math.Inf(1))); err == nil {
		t.Error("expected error for float32 infinity")
	}
}

func TestNumberValue_PanicsOnNonFinite(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for NaN")
		}
	}()
	NumberValue(math.NaN())
}
