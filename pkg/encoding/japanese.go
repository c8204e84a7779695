// Package encoding provides the text encodings of the MMD file formats:
// Shift_JIS for fixed-size VMD names and UTF-16LE for PMX strings.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// SJISToUTF8 converts Shift_JIS encoded bytes to UTF-8 string.
// Returns the original string if conversion fails.
func SJISToUTF8(data []byte) string {
	decoder := japanese.ShiftJIS.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToSJIS converts UTF-8 string to Shift_JIS encoded bytes.
// Characters Shift_JIS cannot represent become '?'.
func UTF8ToSJIS(s string) []byte {
	encoder := japanese.ShiftJIS.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err == nil {
		return result
	}

	// Encode rune by rune so one bad character does not lose the rest
	var buf bytes.Buffer
	for _, r := range s {
		b, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(string(r)))
		if err != nil {
			buf.WriteByte('?')
			continue
		}
		buf.Write(b)
	}
	return buf.Bytes()
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// FixedStringToUTF8 converts a fixed-size Shift_JIS byte array to UTF-8.
// Handles null termination and encoding conversion.
func FixedStringToUTF8(data []byte) string {
	if nullIdx := bytes.IndexByte(data, 0); nullIdx >= 0 {
		data = data[:nullIdx]
	}
	return SJISToUTF8(data)
}

// UTF8ToFixedString converts UTF-8 string to a fixed-size Shift_JIS byte
// array padded with null bytes. Long names are cut at a character
// boundary.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	encoded := UTF8ToSJIS(s)
	copy(result, encoded[:sjisCut(encoded, size)])
	return result
}

// sjisCut returns the longest prefix length of b, at most limit, that does
// not split a double-byte character.
func sjisCut(b []byte, limit int) int {
	if len(b) <= limit {
		return len(b)
	}
	i := 0
	for i < limit {
		n := 1
		if isSJISLead(b[i]) {
			n = 2
		}
		if i+n > limit {
			break
		}
		i += n
	}
	return i
}

func isSJISLead(c byte) bool {
	return (c >= 0x81 && c <= 0x9F) || (c >= 0xE0 && c <= 0xFC)
}
