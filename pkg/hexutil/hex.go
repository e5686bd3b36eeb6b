// Package hexutil provides the raw/hex conversions the crypto core
// exposes at its boundary (content keys, hashes, serial numbers) so
// callers never have to pass raw binary across languages or logs.
package hexutil

import (
	"encoding/hex"
	"fmt"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

// Encode returns the lowercase hex encoding of raw.
func Encode(raw []byte) string {
	return hex.EncodeToString(raw)
}

// Decode parses a hex string (case-insensitive) back into raw bytes.
func Decode(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidHexInput, err)
	}
	return raw, nil
}
