// Package encoding provides text decoding for model asset files. Motion and
// settings files written by older authoring tools are often Shift_JIS.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ShiftJISToUTF8 converts Shift_JIS encoded bytes to a UTF-8 string.
// Returns the input unchanged if conversion fails.
func ShiftJISToUTF8(data []byte) string {
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToShiftJIS converts a UTF-8 string to Shift_JIS bytes.
// Returns the input bytes if the string has no Shift_JIS representation.
func UTF8ToShiftJIS(s string) []byte {
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns the UTF-8 text of an asset file. A UTF-8 byte order
// mark is stripped, UTF-16 input with a BOM is decoded, valid UTF-8 is kept
// as is, and anything else is treated as Shift_JIS.
func DecodeText(data []byte) string {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):])
	}
	if len(data) >= 2 && (data[0] == 0xFF && data[1] == 0xFE || data[0] == 0xFE && data[1] == 0xFF) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if result, _, err := transform.Bytes(dec, data); err == nil {
			return string(result)
		}
	}
	if utf8.Valid(data) {
		return string(data)
	}
	return ShiftJISToUTF8(data)
}

// DecodeBytes is DecodeText returning bytes, for parsers that work on
// []byte.
func DecodeBytes(data []byte) []byte {
	if !bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data) {
		return data
	}
	return []byte(DecodeText(data))
}
