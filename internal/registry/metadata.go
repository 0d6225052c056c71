package registry

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

// MetadataStore holds the per-asset immutable content hash. The field is
// write-once: any second write fails with AlreadySet regardless of value,
// even an identical one. The shared mutable base locator lives in the
// access controller; the store only composes with it.
type MetadataStore struct {
	hashes map[uint64]string
}

// NewMetadataStore creates an empty store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		hashes: make(map[uint64]string),
	}
}

// Multihash returns the immutable hash for an asset, empty string if unset.
func (ms *MetadataStore) Multihash(id uint64) string {
	return ms.hashes[id]
}

// SetMultihash records the write-once hash for an asset. Ownership and
// existence checks belong to the registry; the store enforces only the
// one-time-write rule and the hash encoding.
func (ms *MetadataStore) SetMultihash(id uint64, multihash string) error {
	if _, set := ms.hashes[id]; set {
		return fmt.Errorf("asset %d: %w", id, asset.ErrAlreadySet)
	}
	if err := validateMultihash(multihash); err != nil {
		return err
	}
	ms.hashes[id] = multihash
	return nil
}

// ComposeURI returns base + hash, or base alone when no hash is set.
func (ms *MetadataStore) ComposeURI(base string, id uint64) string {
	return base + ms.hashes[id]
}

// Hashes returns a copy of all recorded hashes.
func (ms *MetadataStore) Hashes() map[uint64]string {
	out := make(map[uint64]string, len(ms.hashes))
	for id, h := range ms.hashes {
		out[id] = h
	}
	return out
}

// restore overwrites the store from a snapshot.
func (ms *MetadataStore) restore(hashes map[uint64]string) {
	ms.hashes = make(map[uint64]string, len(hashes))
	for id, h := range hashes {
		ms.hashes[id] = h
	}
}

// validateMultihash accepts the two encodings seen in the wild: base58btc
// (CIDv0, "Qm...") and lowercase hex (multibase "f" prefixed or bare).
func validateMultihash(s string) error {
	if s == "" {
		return fmt.Errorf("empty multihash: %w", asset.ErrInvalidMultihash)
	}

	if _, err := base58.Decode(s); err == nil {
		return nil
	}

	raw := strings.TrimPrefix(s, "f")
	if len(raw)%2 == 0 {
		if _, err := hex.DecodeString(raw); err == nil {
			return nil
		}
	}

	return fmt.Errorf("multihash %q: %w", s, asset.ErrInvalidMultihash)
}
