package zpl

import (
	"fmt"
	"strings"
	"testing"
)

func baseField() FieldPosition {
	return FieldPosition{
		Name:       "produto",
		X:          10,
		Y:          10,
		FontSize:   12,
		FontStyle:  FontStyleNormal,
		Alignment:  AlignLeft,
		FontFamily: "A",
		FieldType:  FieldDynamic,
	}
}

func TestCompile_ExampleScenario(t *testing.T) {
	tpl := Template{Width: 400, Height: 300, Fields: []FieldPosition{baseField()}}
	out := Compile(tpl, map[string]string{"produto": "CARNE BOVINA"})

	if !strings.HasPrefix(out, "^XA") {
		t.Fatalf("output must start with label-start directive, got %q", out)
	}
	if !strings.HasSuffix(out, "^XZ") {
		t.Fatalf("output must end with label-end directive, got %q", out)
	}

	ordered := []string{"^XA", "^FO10,10", "^AAN,12", "^FB390,", ",L,", "^FDCARNE BOVINA^FS", "^XZ"}
	pos := 0
	for _, directive := range ordered {
		idx := strings.Index(out[pos:], directive)
		if idx < 0 {
			t.Fatalf("directive %q missing (or out of order) in %q", directive, out)
		}
		pos += idx
	}

	if strings.Contains(out, "{produto}") {
		t.Fatalf("placeholder should have been substituted, got %q", out)
	}
}

func TestCompile_Purity(t *testing.T) {
	tpl := Template{Width: 400, Height: 300, Fields: []FieldPosition{baseField()}}
	values := map[string]string{"produto": "QUEIJO MINAS"}

	first := Compile(tpl, values)
	second := Compile(tpl, values)
	if first != second {
		t.Fatalf("compiler is not pure:\n%q\n%q", first, second)
	}
}

func TestCompile_FieldOrderFollowsDeclaration(t *testing.T) {
	// Coordinates deliberately contradict declaration order.
	var fields []FieldPosition
	for i := 0; i < 4; i++ {
		f := baseField()
		f.Name = fmt.Sprintf("campo%d", i)
		f.X = 400 - i*100
		f.Y = 300 - i*50
		fields = append(fields, f)
	}
	out := Compile(Template{Width: 500, Height: 400, Fields: fields}, nil)

	pos := -1
	for i := range fields {
		idx := strings.Index(out, "{"+fields[i].Name+"}")
		if idx < 0 {
			t.Fatalf("field %d missing from output", i)
		}
		if idx < pos {
			t.Fatalf("field %d emitted out of declaration order", i)
		}
		pos = idx
	}
}

func TestCompile_WidthDerivation(t *testing.T) {
	for _, x := range []int{0, 10, 150, 399} {
		f := baseField()
		f.X = x
		out := Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, nil)
		want := fmt.Sprintf("^FB%d,", 400-x)
		if !strings.Contains(out, want) {
			t.Fatalf("x=%d: text block width should be %d, output %q", x, 400-x, out)
		}
	}
}

func TestCompile_MissingValueKeepsPlaceholder(t *testing.T) {
	tpl := Template{Width: 400, Height: 300, Fields: []FieldPosition{baseField()}}
	out := Compile(tpl, nil)
	if !strings.Contains(out, "^FD{produto}^FS") {
		t.Fatalf("dynamic field without a value must keep its placeholder, got %q", out)
	}
}

func TestCompile_StaticField(t *testing.T) {
	f := baseField()
	f.FieldType = FieldStatic
	f.StaticValue = "VALIDADE"
	out := Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, nil)
	if !strings.Contains(out, "^FDVALIDADE^FS") {
		t.Fatalf("static field must emit its literal, got %q", out)
	}

	f.StaticValue = ""
	f.DefaultValue = "LOTE"
	out = Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, nil)
	if !strings.Contains(out, "^FDLOTE^FS") {
		t.Fatalf("static field must fall back to its default value, got %q", out)
	}
}

func TestCompile_BoldAndAlignmentCodes(t *testing.T) {
	f := baseField()
	f.FontStyle = FontStyleBold
	f.Alignment = AlignCenter
	f.FontFamily = "D"
	f.FontSize = 30
	out := Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, nil)

	if !strings.Contains(out, "^ADB,30") {
		t.Fatalf("bold font directive missing, got %q", out)
	}
	if !strings.Contains(out, ",C,") {
		t.Fatalf("center justification missing, got %q", out)
	}

	f.Alignment = AlignRight
	out = Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, nil)
	if !strings.Contains(out, ",R,") {
		t.Fatalf("right justification missing, got %q", out)
	}
}

func TestCompile_ReversedField(t *testing.T) {
	f := baseField()
	f.Reversed = true
	out := Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, map[string]string{"produto": "X"})
	if !strings.Contains(out, "^FR^FDX^FS") {
		t.Fatalf("reversed field must emit ^FR before content, got %q", out)
	}
}

func TestCompile_BarcodeDirectives(t *testing.T) {
	cases := []struct {
		barcodeType BarcodeType
		want        string
	}{
		{BarcodeCode39, "^B3N,N,80,Y,N"},
		{BarcodeCode128, "^BCN,80,Y,N,N"},
		{BarcodeEAN13, "^BEN,80,Y,N"},
	}
	for _, tc := range cases {
		f := baseField()
		f.FieldType = FieldBarcode
		f.BarcodeType = tc.barcodeType
		f.BarcodeHeight = 80
		out := Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{f}}, map[string]string{"produto": "789"})
		if !strings.Contains(out, tc.want) {
			t.Errorf("%s: expected %q in %q", tc.barcodeType, tc.want, out)
		}
		if !strings.Contains(out, "^FD789^FS") {
			t.Errorf("%s: barcode data missing in %q", tc.barcodeType, out)
		}
	}
}

func TestCompile_QRCodeAndLine(t *testing.T) {
	qr := baseField()
	qr.FieldType = FieldQRCode
	out := Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{qr}}, map[string]string{"produto": "lote-42"})
	if !strings.Contains(out, "^BQN,2,") {
		t.Fatalf("qr directive missing in %q", out)
	}
	if !strings.Contains(out, "^FDlote-42^FS") {
		t.Fatalf("qr data missing in %q", out)
	}

	line := baseField()
	line.FieldType = FieldLine
	line.LineWidth = 380
	line.LineHeight = 3
	out = Compile(Template{Width: 400, Height: 300, Fields: []FieldPosition{line}}, nil)
	if !strings.Contains(out, "^GB380,3,3^FS") {
		t.Fatalf("line directive missing in %q", out)
	}
	if strings.Contains(out, "^FD") {
		t.Fatalf("line fields must not emit content, got %q", out)
	}
}

func TestCompile_NoValidation(t *testing.T) {
	// Out-of-bounds coordinates and a zero-sized label pass through; layout
	// correctness is the preview's concern.
	f := baseField()
	f.X = 900
	f.Y = -5
	out := Compile(Template{Width: 0, Height: 0, Fields: []FieldPosition{f}}, nil)
	if !strings.Contains(out, "^FO900,-5") {
		t.Fatalf("coordinates must be emitted verbatim, got %q", out)
	}
	if !strings.Contains(out, "^FB-900,") {
		t.Fatalf("derived width must be emitted verbatim even when negative, got %q", out)
	}
}
