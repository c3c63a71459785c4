package cborutil

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeHexSegment accepts a hex string with an optional "0x" prefix,
// ignoring whitespace anywhere in it, per spec.md §4.G/§8's boundary test.
// Odd-length or non-hex input is rejected.
func DecodeHexSegment(s string) ([]byte, error) {
	trimmed := strings.Join(strings.Fields(s), "")
	trimmed = strings.TrimPrefix(trimmed, "0x")
	trimmed = strings.TrimPrefix(trimmed, "0X")
	if len(trimmed)%2 != 0 {
		return nil, fmt.Errorf("cborutil: odd-length hex segment (%d chars)", len(trimmed))
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("cborutil: invalid hex segment: %w", err)
	}
	return b, nil
}

// NormalizeAssetName decodes b to UTF-8 if it decodes cleanly (valid
// UTF-8; control characters are not rejected), else returns its
// lower-case hex encoding, per spec.md §4.G.
func NormalizeAssetName(b []byte) string {
	if utf8.Valid(b) && isPrintableASCIIOrUTF8(b) {
		return string(b)
	}
	return hex.EncodeToString(b)
}

func isPrintableASCIIOrUTF8(b []byte) bool {
	for _, r := range string(b) {
		if r == utf8.RuneError {
			return false
		}
	}
	return true
}

// ToLowerHex normalizes a policy-id/asset-name byte slice to lower-case hex.
func ToLowerHex(b []byte) string {
	return strings.ToLower(hex.EncodeToString(b))
}
