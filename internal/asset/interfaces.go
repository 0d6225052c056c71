package asset

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// InterfaceID is a 4-byte capability tag. The registry declares a fixed set
// at construction and answers membership queries; there is no runtime
// capability detection beyond that set.
type InterfaceID [4]byte

// The four declared capability groups of the registry.
var (
	InterfaceDetection   = InterfaceID{0x01, 0xff, 0xc9, 0xa7} // basic-detection
	InterfaceRegistry    = InterfaceID{0x80, 0xac, 0x58, 0xcd} // base-asset registry
	InterfaceMetadata    = InterfaceID{0x5b, 0x5e, 0x13, 0x9f} // metadata extension
	InterfaceEnumeration = InterfaceID{0x78, 0x0e, 0x9d, 0x63} // enumeration extension
)

// DeclaredInterfaces returns the full declared capability set.
func DeclaredInterfaces() []InterfaceID {
	return []InterfaceID{
		InterfaceDetection,
		InterfaceRegistry,
		InterfaceMetadata,
		InterfaceEnumeration,
	}
}

// ParseInterfaceID parses a hex-encoded capability tag. Longer inputs are
// accepted when left-padded with zeros, matching the 32-byte right-aligned
// encoding some callers use.
func ParseInterfaceID(s string) (InterfaceID, error) {
	var id InterfaceID

	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw)%2 != 0 {
		raw = "0" + raw
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return id, fmt.Errorf("interface id %q: %w", s, err)
	}
	if len(b) < 4 {
		padded := make([]byte, 4)
		copy(padded[4-len(b):], b)
		b = padded
	}

	// Everything before the trailing 4 bytes must be zero padding.
	for _, v := range b[:len(b)-4] {
		if v != 0 {
			return id, fmt.Errorf("interface id %q: non-zero padding", s)
		}
	}

	copy(id[:], b[len(b)-4:])
	return id, nil
}

// String returns the 0x-prefixed hex form of the tag.
func (id InterfaceID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}
