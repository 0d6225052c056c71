package core

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/registry"
)

// StateExport is the full serializable engine state, written to snapshot
// storage and read back on recovery. Balances and supply are decimal
// strings of minimal units. Assets appear in global enumeration order;
// OwnerIndex carries each owner's list in its own enumeration order so
// swap-remove positions survive a restart.
type StateExport struct {
	Sequence  int64  `json:"sequence"`
	StateHash []byte `json:"state_hash"`

	Supply   string            `json:"supply"`
	Balances map[string]string `json:"balances"`

	Counter    uint64                     `json:"counter"`
	Assets     []AssetExport              `json:"assets"`
	OwnerIndex map[asset.Address][]uint64 `json:"owner_index,omitempty"`
	Multihash  map[uint64]string          `json:"multihashes,omitempty"`

	PaymentAddress asset.Address `json:"payment_address"`
	BaseTokenURI   string        `json:"base_token_uri"`

	IdempotencyKeys []string  `json:"idempotency_keys,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AssetExport is one serializable asset record.
type AssetExport struct {
	ID       uint64        `json:"id"`
	Owner    asset.Address `json:"owner"`
	Approved string        `json:"approved,omitempty"`
}

// Export returns the engine state as canonical JSON, plus the sequence and
// state-hash tip it was taken at.
func (e *Engine) Export() ([]byte, int64, [32]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	hash := e.hasher.GetPrevHash()

	balances, supply := e.ledger.Snapshot()
	exp := StateExport{
		Sequence:        e.sequence,
		StateHash:       hash[:],
		Supply:          supply.String(),
		Balances:        make(map[string]string, len(balances)),
		PaymentAddress:  e.admin.PaymentAddress(),
		BaseTokenURI:    e.admin.BaseTokenURI(),
		IdempotencyKeys: e.idempotency.Keys(),
		CreatedAt:       time.Now().UTC(),
	}
	for addr, b := range balances {
		exp.Balances[addr.String()] = b.String()
	}

	snap := e.registry.Export()
	exp.Counter = snap.Counter
	exp.OwnerIndex = snap.Owned
	exp.Multihash = snap.Multihashes
	exp.Assets = make([]AssetExport, 0, len(snap.Assets))
	for _, a := range snap.Assets {
		ae := AssetExport{ID: a.ID, Owner: a.Owner}
		if !a.Approved.IsZero() {
			ae.Approved = a.Approved.String()
		}
		exp.Assets = append(exp.Assets, ae)
	}

	data, err := json.Marshal(&exp)
	if err != nil {
		return nil, 0, hash, fmt.Errorf("marshal state export: %w", err)
	}
	return data, exp.Sequence, hash, nil
}

// Restore rebuilds engine state from an exported snapshot. Meant for
// startup recovery, before the engine accepts operations.
func (e *Engine) Restore(data []byte) error {
	var exp StateExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return fmt.Errorf("unmarshal state export: %w", err)
	}

	supply, ok := new(big.Int).SetString(exp.Supply, 10)
	if !ok {
		return fmt.Errorf("state export: bad supply %q", exp.Supply)
	}

	balances := make(map[asset.Address]*big.Int, len(exp.Balances))
	for addrStr, balStr := range exp.Balances {
		addr, err := asset.ParseAddress(addrStr)
		if err != nil {
			return fmt.Errorf("state export: %w", err)
		}
		b, ok := new(big.Int).SetString(balStr, 10)
		if !ok {
			return fmt.Errorf("state export: bad balance %q for %s", balStr, addrStr)
		}
		balances[addr] = b
	}

	snap := &registry.Snapshot{
		Counter:     exp.Counter,
		Assets:      make([]registry.Asset, 0, len(exp.Assets)),
		Owned:       exp.OwnerIndex,
		Multihashes: exp.Multihash,
	}
	for _, ae := range exp.Assets {
		a := registry.Asset{ID: ae.ID, Owner: ae.Owner}
		if ae.Approved != "" {
			approved, err := asset.ParseAddress(ae.Approved)
			if err != nil {
				return fmt.Errorf("state export asset %d: %w", ae.ID, err)
			}
			a.Approved = approved
		}
		snap.Assets = append(snap.Assets, a)
	}
	if snap.Multihashes == nil {
		snap.Multihashes = make(map[uint64]string)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Restore(snap); err != nil {
		return err
	}
	e.ledger.Restore(balances, supply)
	e.admin.Restore(exp.PaymentAddress, exp.BaseTokenURI)
	e.sequence = exp.Sequence

	var tip [32]byte
	copy(tip[:], exp.StateHash)
	e.hasher = NewStateHasherFrom(tip)

	e.idempotency.Warm(exp.IdempotencyKeys)

	e.log.Info().
		Int64("sequence", exp.Sequence).
		Int("assets", len(exp.Assets)).
		Msg("state restored from snapshot")

	return nil
}
