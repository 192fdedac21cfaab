package zpl

import (
	"fmt"
	"strings"
)

// Template is the transient, in-memory shape the compiler works on. Width and
// Height are physical label dimensions in printer dots.
type Template struct {
	Width  int
	Height int
	Fields []FieldPosition
}

// Max wrapped lines inside a text block. The printer truncates beyond this.
const textBlockMaxLines = 5

// QR magnification factor passed to the ^BQ directive.
const qrMagnification = 4

// Compile renders a template plus a map of runtime values into a complete ZPL
// command. It is a pure function: identical inputs produce byte-identical
// output, fields are emitted strictly in declaration order, and no layout
// validation is performed (out-of-bounds coordinates pass through verbatim).
//
// Dynamic fields with no runtime value keep their literal {name} placeholder
// so a later substitution pass (job submission) can still resolve them.
func Compile(tpl Template, values map[string]string) string {
	var b strings.Builder

	b.WriteString("^XA\n")
	for _, field := range tpl.Fields {
		compileField(&b, tpl, field, values)
	}
	b.WriteString("^XZ")

	return b.String()
}

func compileField(b *strings.Builder, tpl Template, f FieldPosition, values map[string]string) {
	fmt.Fprintf(b, "^FO%d,%d", f.X, f.Y)

	switch f.FieldType {
	case FieldLine:
		// Decorative separator: a filled graphic box, no font or content.
		fmt.Fprintf(b, "^GB%d,%d,%d^FS", f.LineWidth, f.LineHeight, f.LineHeight)
	case FieldBarcode:
		writeBarcode(b, f)
		writeContent(b, f, values)
	case FieldQRCode:
		fmt.Fprintf(b, "^BQN,2,%d", qrMagnification)
		writeContent(b, f, values)
	default:
		// Text fields: font, wrapping block, then content.
		fmt.Fprintf(b, "^A%s%s,%d", f.FontFamily, styleFlag(f.FontStyle), f.FontSize)
		fmt.Fprintf(b, "^FB%d,%d,0,%s,0", tpl.Width-f.X, textBlockMaxLines, justification(f.Alignment))
		writeContent(b, f, values)
	}

	b.WriteString("\n")
}

func writeBarcode(b *strings.Builder, f FieldPosition) {
	switch f.BarcodeType {
	case BarcodeCode39:
		fmt.Fprintf(b, "^B3N,N,%d,Y,N", f.BarcodeHeight)
	case BarcodeEAN13:
		fmt.Fprintf(b, "^BEN,%d,Y,N", f.BarcodeHeight)
	default:
		fmt.Fprintf(b, "^BCN,%d,Y,N,N", f.BarcodeHeight)
	}
}

func writeContent(b *strings.Builder, f FieldPosition, values map[string]string) {
	if f.Reversed {
		b.WriteString("^FR")
	}
	fmt.Fprintf(b, "^FD%s^FS", fieldContent(f, values))
}

// fieldContent resolves what goes between ^FD and ^FS for a field.
func fieldContent(f FieldPosition, values map[string]string) string {
	if f.FieldType == FieldStatic {
		if f.StaticValue != "" {
			return f.StaticValue
		}
		return f.DefaultValue
	}
	if value, ok := values[f.Name]; ok {
		return value
	}
	return "{" + f.Name + "}"
}

func styleFlag(style FontStyle) string {
	if style == FontStyleBold {
		return "B"
	}
	return "N"
}

func justification(a Alignment) string {
	switch a {
	case AlignCenter:
		return "C"
	case AlignRight:
		return "R"
	default:
		return "L"
	}
}
