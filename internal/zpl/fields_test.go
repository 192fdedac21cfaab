package zpl

import (
	"testing"
)

func TestDecodeFields_MissingPropertiesGetDefaults(t *testing.T) {
	// A minimal field as an old schema version might have written it.
	data := []byte(`[{"name":"produto","x":10,"y":20}]`)

	fields, err := DecodeFields(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	f := fields[0]
	if f.Name != "produto" || f.X != 10 || f.Y != 20 {
		t.Fatalf("explicit properties lost: %+v", f)
	}
	if f.FontStyle != FontStyleNormal {
		t.Errorf("fontStyle default: got %q", f.FontStyle)
	}
	if f.Alignment != AlignLeft {
		t.Errorf("alignment default: got %q", f.Alignment)
	}
	if f.FontFamily != "A" {
		t.Errorf("fontFamily default: got %q", f.FontFamily)
	}
	if f.FontSize != DefaultFontSize {
		t.Errorf("fontSize default: got %d", f.FontSize)
	}
	if f.FieldType != FieldDynamic {
		t.Errorf("fieldType default: got %q", f.FieldType)
	}
	if f.Reversed {
		t.Error("reversed should default to false")
	}
	if f.LineNumber != 1 {
		t.Errorf("lineNumber default: got %d", f.LineNumber)
	}
}

func TestDecodeFields_MalformedPropertiesGetDefaults(t *testing.T) {
	data := []byte(`[{
		"name": "peso",
		"x": "30",
		"y": {"nested": true},
		"fontSize": "24",
		"fontStyle": "extra-bold",
		"alignment": 7,
		"fontFamily": "zeta",
		"reversed": "true",
		"fieldType": "hologram",
		"barcodeType": "upc",
		"lineNumber": "not-a-number"
	}]`)

	fields, err := DecodeFields(data)
	if err != nil {
		t.Fatalf("decode must tolerate malformed properties: %v", err)
	}

	f := fields[0]
	if f.X != 30 {
		t.Errorf("numeric string should coerce: got x=%d", f.X)
	}
	if f.Y != 0 {
		t.Errorf("unparseable y should default to 0: got %d", f.Y)
	}
	if f.FontSize != 24 {
		t.Errorf("numeric string fontSize should coerce: got %d", f.FontSize)
	}
	if f.FontStyle != FontStyleNormal {
		t.Errorf("unknown fontStyle should default: got %q", f.FontStyle)
	}
	if f.Alignment != AlignLeft {
		t.Errorf("non-string alignment should default: got %q", f.Alignment)
	}
	if f.FontFamily != "A" {
		t.Errorf("invalid fontFamily should default: got %q", f.FontFamily)
	}
	if !f.Reversed {
		t.Error("boolean string should coerce to true")
	}
	if f.FieldType != FieldDynamic {
		t.Errorf("unknown fieldType should default: got %q", f.FieldType)
	}
	if f.BarcodeType != BarcodeCode128 {
		t.Errorf("unknown barcodeType should default: got %q", f.BarcodeType)
	}
	if f.LineNumber != 1 {
		t.Errorf("unparseable lineNumber should default: got %d", f.LineNumber)
	}
}

func TestDecodeFields_LowercaseFontFamilyNormalized(t *testing.T) {
	fields, err := DecodeFields([]byte(`[{"name":"n","fontFamily":"c"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fields[0].FontFamily != "C" {
		t.Fatalf("expected family C, got %q", fields[0].FontFamily)
	}
}

func TestDecodeFields_EmptyAndInvalid(t *testing.T) {
	if fields, err := DecodeFields(nil); err != nil || fields != nil {
		t.Fatalf("nil input: got %v, %v", fields, err)
	}
	if _, err := DecodeFields([]byte(`{"not":"an array"`)); err == nil {
		t.Fatal("structurally invalid document must error")
	}
}

func TestEncodeFields_RoundTripsThroughDecode(t *testing.T) {
	original := []FieldPosition{{
		Name:       "produto",
		X:          5,
		Y:          7,
		FontSize:   18,
		FontStyle:  FontStyleBold,
		Alignment:  AlignRight,
		FontFamily: "B",
		FieldType:  FieldStatic,
		StaticValue: "FIXO",
		LineNumber: 2,
	}}

	data, err := EncodeFields(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeFields(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[0].Name != "produto" || decoded[0].FontStyle != FontStyleBold ||
		decoded[0].StaticValue != "FIXO" || decoded[0].LineNumber != 2 {
		t.Fatalf("round trip lost data: %+v", decoded[0])
	}
}
