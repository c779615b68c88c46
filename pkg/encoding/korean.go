// Package encoding converts the EUC-KR strings found in legacy model and
// archive files to UTF-8.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR bytes to a UTF-8 string.
// Plain ASCII is returned untouched; undecodable input is returned as-is.
func EUCKRToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil || !utf8.Valid(result) {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR bytes.
// Characters without an EUC-KR mapping make it return the input bytes.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// FixedStringToUTF8 decodes a NUL-padded fixed-size EUC-KR field.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

// UTF8ToFixedString encodes s into a NUL-padded EUC-KR field of the given size.
// Input longer than size is truncated.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToEUCKR(s))
	return result
}

// NormalizePath folds an archive path for case-insensitive lookup.
func NormalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
