package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RedactEmail returns a short deterministic hash of a normalized email so logs
// can be correlated without holding the address.
func RedactEmail(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:8])
}

// RedactAddress keeps the first and last four hex digits of a wallet address
func RedactAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

// NormalizeEmail trims and lowercases an email for comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
