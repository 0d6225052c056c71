package registry_test

import (
	"errors"
	"testing"

	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/registry"
)

const (
	hashBase58 = "QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n"
	hashHex    = "f1220855f505358ce25b2ee3cc97cf7e46d731e6c0e6f8f26770327ec1a9cbbbbccd9"
)

// ============================================================================
// Test: MetadataStore
// ============================================================================

func TestMetadataStore_SetAndGet(t *testing.T) {
	ms := registry.NewMetadataStore()

	if ms.Multihash(1) != "" {
		t.Error("unset hash should be empty")
	}
	if err := ms.SetMultihash(1, hashBase58); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := ms.Multihash(1); got != hashBase58 {
		t.Errorf("got %q, want %q", got, hashBase58)
	}
}

func TestMetadataStore_WriteOnce(t *testing.T) {
	ms := registry.NewMetadataStore()
	if err := ms.SetMultihash(1, hashBase58); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Second write fails even with an identical value.
	err := ms.SetMultihash(1, hashBase58)
	if !errors.Is(err, asset.ErrAlreadySet) {
		t.Errorf("rewrite same value: got %v, want ErrAlreadySet", err)
	}
	err = ms.SetMultihash(1, hashHex)
	if !errors.Is(err, asset.ErrAlreadySet) {
		t.Errorf("rewrite new value: got %v, want ErrAlreadySet", err)
	}
	if got := ms.Multihash(1); got != hashBase58 {
		t.Errorf("hash after rejected rewrite: got %q, want %q", got, hashBase58)
	}
}

func TestMetadataStore_AcceptsBothEncodings(t *testing.T) {
	ms := registry.NewMetadataStore()
	if err := ms.SetMultihash(1, hashBase58); err != nil {
		t.Errorf("base58: %v", err)
	}
	if err := ms.SetMultihash(2, hashHex); err != nil {
		t.Errorf("hex: %v", err)
	}
}

func TestMetadataStore_RejectsInvalid(t *testing.T) {
	ms := registry.NewMetadataStore()
	for _, s := range []string{"", "not hex not base58 0OIl", "f0zz"} {
		err := ms.SetMultihash(1, s)
		if !errors.Is(err, asset.ErrInvalidMultihash) {
			t.Errorf("SetMultihash(%q): got %v, want ErrInvalidMultihash", s, err)
		}
	}
}

func TestMetadataStore_ComposeURI(t *testing.T) {
	ms := registry.NewMetadataStore()
	ms.SetMultihash(1, hashBase58)

	if got := ms.ComposeURI("https://burni.co/nft/", 1); got != "https://burni.co/nft/"+hashBase58 {
		t.Errorf("got %q", got)
	}
	// No hash set: base alone.
	if got := ms.ComposeURI("https://burni.co/nft/", 2); got != "https://burni.co/nft/" {
		t.Errorf("got %q", got)
	}
}
