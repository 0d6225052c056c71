package asset_test

import (
	"testing"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

// ============================================================================
// Test: interface tags
// ============================================================================

func TestDeclaredInterfaces_StringForms(t *testing.T) {
	cases := []struct {
		id   asset.InterfaceID
		want string
	}{
		{asset.InterfaceDetection, "0x01ffc9a7"},
		{asset.InterfaceRegistry, "0x80ac58cd"},
		{asset.InterfaceMetadata, "0x5b5e139f"},
		{asset.InterfaceEnumeration, "0x780e9d63"},
	}
	for _, tc := range cases {
		if got := tc.id.String(); got != tc.want {
			t.Errorf("got %s, want %s", got, tc.want)
		}
	}
}

func TestParseInterfaceID_Short(t *testing.T) {
	id, err := asset.ParseInterfaceID("0x80ac58cd")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != asset.InterfaceRegistry {
		t.Errorf("got %s, want %s", id, asset.InterfaceRegistry)
	}
}

func TestParseInterfaceID_NoPrefix(t *testing.T) {
	id, err := asset.ParseInterfaceID("01ffc9a7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != asset.InterfaceDetection {
		t.Errorf("got %s, want %s", id, asset.InterfaceDetection)
	}
}

func TestParseInterfaceID_ZeroPadded(t *testing.T) {
	// 32-byte right-aligned encoding of the same tag.
	id, err := asset.ParseInterfaceID("0x0000000000000000000000000000000000000000000000000000000000780e9d63")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != asset.InterfaceEnumeration {
		t.Errorf("got %s, want %s", id, asset.InterfaceEnumeration)
	}
}

func TestParseInterfaceID_NonZeroPadding(t *testing.T) {
	if _, err := asset.ParseInterfaceID("0x01780e9d63"); err == nil {
		t.Error("non-zero padding should not parse")
	}
}

func TestParseInterfaceID_BadHex(t *testing.T) {
	if _, err := asset.ParseInterfaceID("0xzzzzzzzz"); err == nil {
		t.Error("non-hex tag should not parse")
	}
}
