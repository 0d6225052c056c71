package registry

import (
	"fmt"
	"math/big"

	"github.com/vim-labs/burni-tokens/internal/access"
	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/ledger"
)

// Funds is the slice of the balance ledger the registry needs while
// handling a deposit: pay the mint fee out of the held balance and burn the
// valuation. Both are infallible once the deposit amount has been credited,
// which the ledger guarantees before notifying the sink.
type Funds interface {
	TransferHeld(to asset.Address, amount *big.Int) ledger.Movement
	BurnHeld(amount *big.Int) ledger.Movement
}

// Asset is one uniquely identified, indivisible derived asset. Ids are
// assigned sequentially from 1 and never reused. A zero approved address
// means no approval.
type Asset struct {
	ID       uint64
	Owner    asset.Address
	Approved asset.Address
}

// Config is the construction-time shape of the registry.
type Config struct {
	Name    string
	Symbol  string
	Address asset.Address
}

// Registry owns asset identity, ownership and single-spender approval. It
// is the sole mutator of Asset records and of the enumeration index, and it
// implements ledger.DepositSink: qualifying base-asset deposits are the
// only way assets come into existence. Not safe for concurrent use; the
// engine serializes all access.
type Registry struct {
	name   string
	symbol string
	addr   asset.Address

	funds  Funds
	admin  *access.Controller
	index  *EnumerationIndex
	meta   *MetadataStore
	caps   map[asset.InterfaceID]struct{}
	assets map[uint64]*Asset

	counter uint64
}

// New constructs the registry. The admin controller is shared by handle:
// fee recipients and locators are always read live, never snapshotted.
func New(cfg Config, funds Funds, admin *access.Controller) *Registry {
	caps := make(map[asset.InterfaceID]struct{})
	for _, id := range asset.DeclaredInterfaces() {
		caps[id] = struct{}{}
	}

	return &Registry{
		name:   cfg.Name,
		symbol: cfg.Symbol,
		addr:   cfg.Address,
		funds:  funds,
		admin:  admin,
		index:  NewEnumerationIndex(),
		meta:   NewMetadataStore(),
		caps:   caps,
		assets: make(map[uint64]*Asset),
	}
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Symbol returns the registry symbol.
func (r *Registry) Symbol() string { return r.symbol }

// Decimals is fixed at 0: derived assets are indivisible.
func (r *Registry) Decimals() uint8 { return 0 }

// Address returns the registry's registered deposit address.
func (r *Registry) Address() asset.Address { return r.addr }

// TotalSupply returns the number of minted assets.
func (r *Registry) TotalSupply() uint64 {
	return uint64(r.index.Len())
}

// DepositReceived implements ledger.DepositSink. The deposit must be a
// positive multiple of one whole unit; anything else is rejected outright
// with InvalidAmount, failing the enclosing transfer so no value is
// silently dropped. Each whole unit mints exactly one asset: the fee
// (unit/40) goes to the current administrator, the valuation (unit - fee)
// is burned from supply, and the next sequential id is created under the
// sender's ownership.
func (r *Registry) DepositReceived(sender asset.Address, amount *big.Int) (*ledger.DepositResult, error) {
	count, exact := asset.WholeUnits(amount)
	if !exact {
		return nil, fmt.Errorf("deposit of %s is not a whole-unit multiple: %w", amount, asset.ErrInvalidAmount)
	}

	// All failure modes are behind us: the ledger has already credited the
	// full amount to the held balance, so fee payment and burning cannot
	// fail, and id allocation is infallible. The loop below is therefore
	// atomic across all count iterations.
	result := &ledger.DepositResult{
		AssetIDs:  make([]uint64, 0, count),
		Movements: make([]ledger.Movement, 0, count*2),
	}

	for i := uint64(0); i < count; i++ {
		result.Movements = append(result.Movements,
			r.funds.TransferHeld(r.admin.PaymentAddress(), asset.MintFee()),
			r.funds.BurnHeld(asset.MintValuation()),
		)

		r.counter++
		id := r.counter
		r.assets[id] = &Asset{ID: id, Owner: sender}
		r.index.Insert(id, sender)
		result.AssetIDs = append(result.AssetIDs, id)
	}

	return result, nil
}

// Exists reports whether an asset with the given id has been minted.
func (r *Registry) Exists(id uint64) bool {
	_, ok := r.assets[id]
	return ok
}

// OwnerOf returns the current owner of an asset.
func (r *Registry) OwnerOf(id uint64) (asset.Address, error) {
	a, err := r.lookup(id)
	if err != nil {
		return asset.ZeroAddress, err
	}
	return a.Owner, nil
}

// ApprovedFor returns the approved spender, zero address if none.
func (r *Registry) ApprovedFor(id uint64) (asset.Address, error) {
	a, err := r.lookup(id)
	if err != nil {
		return asset.ZeroAddress, err
	}
	return a.Approved, nil
}

// BalanceOf returns how many assets an owner holds.
func (r *Registry) BalanceOf(owner asset.Address) int {
	return r.index.OwnedCount(owner)
}

// TokenByIndex returns the id at position i of the global enumeration.
func (r *Registry) TokenByIndex(i int) (uint64, error) {
	return r.index.TokenByIndex(i)
}

// TokenOfOwnerByIndex returns the id at position i of the owner's
// enumeration.
func (r *Registry) TokenOfOwnerByIndex(owner asset.Address, i int) (uint64, error) {
	return r.index.TokenOfOwnerByIndex(owner, i)
}

// Approve sets the single approved spender for an asset, overwriting any
// prior approval. Only the current owner may call it.
func (r *Registry) Approve(caller, spender asset.Address, id uint64) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if caller != a.Owner {
		return fmt.Errorf("approve asset %d by %s: %w", id, caller, asset.ErrUnauthorized)
	}
	a.Approved = spender
	return nil
}

// ClearApproval clears the approved spender. The stated owner must be the
// actual owner and the caller must be that owner, so an approved spender
// cannot clear its own approval.
func (r *Registry) ClearApproval(caller, owner asset.Address, id uint64) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if a.Owner != owner {
		return fmt.Errorf("clear approval on asset %d: stated owner %s: %w", id, owner, asset.ErrNotOwner)
	}
	if caller != owner {
		return fmt.Errorf("clear approval on asset %d by %s: %w", id, caller, asset.ErrUnauthorized)
	}
	a.Approved = asset.ZeroAddress
	return nil
}

// TransferFrom moves an asset between owners. The caller must be the owner
// or the approved spender. Approval does not survive a transfer.
func (r *Registry) TransferFrom(caller, from, to asset.Address, id uint64) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if a.Owner != from {
		return fmt.Errorf("transfer asset %d: stated owner %s: %w", id, from, asset.ErrNotOwner)
	}
	if caller != from && (a.Approved.IsZero() || caller != a.Approved) {
		return fmt.Errorf("transfer asset %d by %s: %w", id, caller, asset.ErrUnauthorized)
	}

	r.index.Move(id, from, to)
	a.Owner = to
	a.Approved = asset.ZeroAddress
	return nil
}

// SetImmutableMultihash records the write-once content hash for an asset.
// Only the current owner may call it.
func (r *Registry) SetImmutableMultihash(caller asset.Address, multihash string, id uint64) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if caller != a.Owner {
		return fmt.Errorf("set multihash on asset %d by %s: %w", id, caller, asset.ErrUnauthorized)
	}
	return r.meta.SetMultihash(id, multihash)
}

// TokenURI returns the base locator concatenated with the asset's immutable
// hash, or the base locator alone when no hash is set.
func (r *Registry) TokenURI(id uint64) (string, error) {
	if _, err := r.lookup(id); err != nil {
		return "", err
	}
	return r.meta.ComposeURI(r.admin.BaseTokenURI(), id), nil
}

// Multihash returns the immutable hash for an asset, empty if unset.
func (r *Registry) Multihash(id uint64) (string, error) {
	if _, err := r.lookup(id); err != nil {
		return "", err
	}
	return r.meta.Multihash(id), nil
}

// SupportsInterface answers membership in the declared capability set.
func (r *Registry) SupportsInterface(id asset.InterfaceID) bool {
	_, ok := r.caps[id]
	return ok
}

func (r *Registry) lookup(id uint64) (*Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", id, asset.ErrNotFound)
	}
	return a, nil
}

// Snapshot is the serializable registry state. Assets and GlobalIndex are
// in global enumeration order; Owned carries each owner's list in its own
// enumeration order, which swap-remove may have decoupled from mint order.
type Snapshot struct {
	Counter     uint64
	Assets      []Asset
	GlobalIndex []uint64
	Owned       map[asset.Address][]uint64
	Multihashes map[uint64]string
}

// Export returns a copy of the registry state. Global and per-owner
// orderings are both carried so a restore reproduces every enumeration
// answer exactly.
func (r *Registry) Export() *Snapshot {
	snap := &Snapshot{
		Counter:     r.counter,
		Assets:      make([]Asset, 0, len(r.assets)),
		GlobalIndex: r.index.Global(),
		Owned:       r.index.OwnedLists(),
		Multihashes: r.meta.Hashes(),
	}
	for _, id := range snap.GlobalIndex {
		snap.Assets = append(snap.Assets, *r.assets[id])
	}
	return snap
}

// Restore overwrites registry state from a snapshot. The global list is
// rebuilt from the asset order and per-owner lists from Owned, so
// TokenOfOwnerByIndex answers survive a restart unchanged. A snapshot
// without Owned falls back to assigning owners in global order.
func (r *Registry) Restore(snap *Snapshot) error {
	index := NewEnumerationIndex()
	assets := make(map[uint64]*Asset, len(snap.Assets))

	for _, a := range snap.Assets {
		if _, dup := assets[a.ID]; dup {
			return fmt.Errorf("snapshot has duplicate asset id %d", a.ID)
		}
		copied := a
		assets[a.ID] = &copied
		index.insertGlobal(a.ID)
	}

	if len(snap.Owned) == 0 {
		for _, a := range snap.Assets {
			index.assign(a.ID, a.Owner)
		}
	} else {
		entries := 0
		for owner, list := range snap.Owned {
			for _, id := range list {
				a, ok := assets[id]
				if !ok {
					return fmt.Errorf("snapshot owner list for %s has unknown asset id %d", owner, id)
				}
				if a.Owner != owner {
					return fmt.Errorf("snapshot owner list for %s disagrees with asset %d owner %s", owner, id, a.Owner)
				}
				index.assign(id, owner)
				entries++
			}
		}
		if entries != len(assets) || index.AssignedCount() != len(assets) {
			return fmt.Errorf("snapshot owner lists cover %d entries for %d assets", entries, len(assets))
		}
	}

	r.counter = snap.Counter
	r.assets = assets
	r.index = index
	r.meta.restore(snap.Multihashes)
	return nil
}
