package asset

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the size of an account identifier in bytes.
const AddressLength = 20

// Address is an opaque fixed-size account identifier. The engine assumes
// every operation already carries an authenticated caller address; nothing
// in this package verifies signatures or derives addresses from keys.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It is never a valid account and is
// used as the "none" sentinel for cleared approvals and burn movements.
var ZeroAddress Address

// ParseAddress parses a hex-encoded address, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("address %q: want %d hex chars, got %d", s, AddressLength*2, len(raw))
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("address %q: %w", s, err)
	}

	copy(a[:], b)
	return a, nil
}

// MustParseAddress parses a hex address and panics on failure. Test helper.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses serialize as
// hex strings in JSON payloads and map keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
