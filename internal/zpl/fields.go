package zpl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FontStyle selects the weight flag emitted with the font directive.
type FontStyle string

const (
	FontStyleNormal FontStyle = "normal"
	FontStyleBold   FontStyle = "bold"
)

// Alignment maps to the text-block justification code.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// FieldType discriminates how a field's content is rendered.
type FieldType string

const (
	FieldDynamic FieldType = "dynamic"
	FieldStatic  FieldType = "static"
	FieldQRCode  FieldType = "qrcode"
	FieldBarcode FieldType = "barcode"
	FieldLine    FieldType = "line"
)

// BarcodeType selects the symbology directive for barcode fields.
type BarcodeType string

const (
	BarcodeCode39  BarcodeType = "code39"
	BarcodeCode128 BarcodeType = "code128"
	BarcodeEAN13   BarcodeType = "ean13"
)

// Defaults applied by the tolerant loader when a persisted property is missing
// or has the wrong type. Templates written by older schema versions must keep
// loading, so decode never fails on a single bad property.
const (
	DefaultFontSize      = 10
	DefaultFontFamily    = "A"
	DefaultBarcodeHeight = 50
	DefaultLineHeight    = 2
	DefaultLineNumber    = 1
)

// FieldPosition is one positioned, styled content unit within a template.
type FieldPosition struct {
	Name          string      `json:"name"`
	X             int         `json:"x"`
	Y             int         `json:"y"`
	FontSize      int         `json:"fontSize"`
	FontStyle     FontStyle   `json:"fontStyle"`
	Alignment     Alignment   `json:"alignment"`
	FontFamily    string      `json:"fontFamily"`
	Reversed      bool        `json:"reversed"`
	FieldType     FieldType   `json:"fieldType"`
	BarcodeType   BarcodeType `json:"barcodeType,omitempty"`
	BarcodeHeight int         `json:"barcodeHeight,omitempty"`
	LineWidth     int         `json:"lineWidth,omitempty"`
	LineHeight    int         `json:"lineHeight,omitempty"`
	StaticValue   string      `json:"staticValue,omitempty"`
	DefaultValue  string      `json:"defaultValue,omitempty"`
	LineNumber    int         `json:"lineNumber"`
	LinePosition  int         `json:"linePosition"`
}

// UnmarshalJSON decodes a persisted field definition defensively: every
// missing or malformed property falls back to its documented default instead
// of failing the whole template.
func (f *FieldPosition) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode field definition: %w", err)
	}

	f.Name = stringOr(raw, "name", "")
	f.X = intOr(raw, "x", 0)
	f.Y = intOr(raw, "y", 0)
	f.FontSize = intOr(raw, "fontSize", DefaultFontSize)
	f.FontStyle = fontStyleOr(raw, "fontStyle", FontStyleNormal)
	f.Alignment = alignmentOr(raw, "alignment", AlignLeft)
	f.FontFamily = fontFamilyOr(raw, "fontFamily", DefaultFontFamily)
	f.Reversed = boolOr(raw, "reversed", false)
	f.FieldType = fieldTypeOr(raw, "fieldType", FieldDynamic)
	f.BarcodeType = barcodeTypeOr(raw, "barcodeType", BarcodeCode128)
	f.BarcodeHeight = intOr(raw, "barcodeHeight", DefaultBarcodeHeight)
	f.LineWidth = intOr(raw, "lineWidth", 0)
	f.LineHeight = intOr(raw, "lineHeight", DefaultLineHeight)
	f.StaticValue = stringOr(raw, "staticValue", "")
	f.DefaultValue = stringOr(raw, "defaultValue", "")
	f.LineNumber = intOr(raw, "lineNumber", DefaultLineNumber)
	f.LinePosition = intOr(raw, "linePosition", 0)

	return nil
}

// DecodeFields parses the JSONB array persisted on a template row. Only a
// structurally invalid document is an error; individual field properties are
// defaulted by FieldPosition.UnmarshalJSON.
func DecodeFields(data []byte) ([]FieldPosition, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var fields []FieldPosition
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode template fields: %w", err)
	}
	return fields, nil
}

// EncodeFields serializes fields for the template row.
func EncodeFields(fields []FieldPosition) ([]byte, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode template fields: %w", err)
	}
	return data, nil
}

func stringOr(raw map[string]any, key, fallback string) string {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// Older exports stored some text properties as bare numbers.
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fallback
	}
}

func intOr(raw map[string]any, key string, fallback int) int {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
		return fallback
	default:
		return fallback
	}
}

func boolOr(raw map[string]any, key string, fallback bool) bool {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
		return fallback
	default:
		return fallback
	}
}

func fontStyleOr(raw map[string]any, key string, fallback FontStyle) FontStyle {
	switch FontStyle(stringOr(raw, key, string(fallback))) {
	case FontStyleBold:
		return FontStyleBold
	default:
		return FontStyleNormal
	}
}

func alignmentOr(raw map[string]any, key string, fallback Alignment) Alignment {
	switch Alignment(stringOr(raw, key, string(fallback))) {
	case AlignCenter:
		return AlignCenter
	case AlignRight:
		return AlignRight
	default:
		return AlignLeft
	}
}

func fieldTypeOr(raw map[string]any, key string, fallback FieldType) FieldType {
	switch FieldType(stringOr(raw, key, string(fallback))) {
	case FieldStatic:
		return FieldStatic
	case FieldQRCode:
		return FieldQRCode
	case FieldBarcode:
		return FieldBarcode
	case FieldLine:
		return FieldLine
	default:
		return FieldDynamic
	}
}

func barcodeTypeOr(raw map[string]any, key string, fallback BarcodeType) BarcodeType {
	switch BarcodeType(stringOr(raw, key, string(fallback))) {
	case BarcodeCode39:
		return BarcodeCode39
	case BarcodeEAN13:
		return BarcodeEAN13
	default:
		return BarcodeCode128
	}
}

func fontFamilyOr(raw map[string]any, key, fallback string) string {
	family := strings.ToUpper(strings.TrimSpace(stringOr(raw, key, fallback)))
	if len(family) != 1 || family[0] < 'A' || family[0] > 'F' {
		return fallback
	}
	return family
}
