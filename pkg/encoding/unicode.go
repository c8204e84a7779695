package encoding

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// UTF8ToUTF16LE converts UTF-8 string to UTF-16LE bytes without a BOM.
func UTF8ToUTF16LE(s string) ([]byte, error) {
	result, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UTF16LEToUTF8 converts UTF-16LE bytes to UTF-8 string.
func UTF16LEToUTF8(data []byte) (string, error) {
	result, _, err := transform.Bytes(utf16le.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(result), nil
}
