package hexutil

import (
	"errors"
	"testing"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}
	encoded := Encode(raw)
	if encoded != "deadbeef0001" {
		t.Fatalf("expected lowercase hex, got %q", encoded)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatalf("round trip mismatch: got %x want %x", decoded, raw)
	}
}

func TestDecode_AcceptsUppercase(t *testing.T) {
	decoded, err := Decode("DEADBEEF")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if Encode(decoded) != "deadbeef" {
		t.Fatalf("expected normalized lowercase round trip, got %x", decoded)
	}
}

func TestDecode_OddLengthIsInvalid(t *testing.T) {
	_, err := Decode("abc")
	if !errors.Is(err, domain.ErrInvalidHexInput) {
		t.Fatalf("expected ErrInvalidHexInput, got %v", err)
	}
}

func TestDecode_NonHexCharacterIsInvalid(t *testing.T) {
	_, err := Decode("zz")
	if !errors.Is(err, domain.ErrInvalidHexInput) {
		t.Fatalf("expected ErrInvalidHexInput, got %v", err)
	}
}
