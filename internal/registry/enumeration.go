package registry

import (
	"fmt"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

// EnumerationIndex maintains the ordered global list of asset ids and an
// ordered per-owner list, both index-addressable. Insertion is append-only;
// removal is swap-remove backed by reverse position lookups, so both are
// O(1). Swap-remove reorders the affected owner's list but the list always
// equals exactly the set of ids that owner holds.
type EnumerationIndex struct {
	global    []uint64
	globalPos map[uint64]int

	owned    map[asset.Address][]uint64
	ownedPos map[uint64]int
}

// NewEnumerationIndex creates an empty index.
func NewEnumerationIndex() *EnumerationIndex {
	return &EnumerationIndex{
		globalPos: make(map[uint64]int),
		owned:     make(map[asset.Address][]uint64),
		ownedPos:  make(map[uint64]int),
	}
}

// Len returns the number of live asset ids.
func (ix *EnumerationIndex) Len() int {
	return len(ix.global)
}

// OwnedCount returns the number of assets an owner holds.
func (ix *EnumerationIndex) OwnedCount(owner asset.Address) int {
	return len(ix.owned[owner])
}

// TokenByIndex returns the id at position i of the global list.
func (ix *EnumerationIndex) TokenByIndex(i int) (uint64, error) {
	if i < 0 || i >= len(ix.global) {
		return 0, fmt.Errorf("global index %d of %d: %w", i, len(ix.global), asset.ErrIndexOutOfRange)
	}
	return ix.global[i], nil
}

// TokenOfOwnerByIndex returns the id at position i of the owner's list.
// An owner with no assets has an empty list, so any i is out of range.
func (ix *EnumerationIndex) TokenOfOwnerByIndex(owner asset.Address, i int) (uint64, error) {
	list := ix.owned[owner]
	if i < 0 || i >= len(list) {
		return 0, fmt.Errorf("owner %s index %d of %d: %w", owner, i, len(list), asset.ErrIndexOutOfRange)
	}
	return list[i], nil
}

// Insert appends a newly minted id to the global list and the owner's list.
func (ix *EnumerationIndex) Insert(id uint64, owner asset.Address) {
	ix.insertGlobal(id)
	ix.assign(id, owner)
}

// Move removes an id from one owner's list and appends it to another's.
// The global list is untouched: ids persist once minted.
func (ix *EnumerationIndex) Move(id uint64, from, to asset.Address) {
	ix.removeOwned(id, from)
	ix.assign(id, to)
}

// OwnedBy returns a copy of an owner's list in enumeration order.
func (ix *EnumerationIndex) OwnedBy(owner asset.Address) []uint64 {
	list := ix.owned[owner]
	out := make([]uint64, len(list))
	copy(out, list)
	return out
}

// Global returns a copy of the global list in enumeration order.
func (ix *EnumerationIndex) Global() []uint64 {
	out := make([]uint64, len(ix.global))
	copy(out, ix.global)
	return out
}

// OwnedLists returns a copy of every owner's list in enumeration order.
func (ix *EnumerationIndex) OwnedLists() map[asset.Address][]uint64 {
	out := make(map[asset.Address][]uint64, len(ix.owned))
	for owner := range ix.owned {
		out[owner] = ix.OwnedBy(owner)
	}
	return out
}

// AssignedCount returns the number of ids assigned to any owner.
func (ix *EnumerationIndex) AssignedCount() int {
	return len(ix.ownedPos)
}

func (ix *EnumerationIndex) insertGlobal(id uint64) {
	ix.globalPos[id] = len(ix.global)
	ix.global = append(ix.global, id)
}

func (ix *EnumerationIndex) assign(id uint64, owner asset.Address) {
	ix.ownedPos[id] = len(ix.owned[owner])
	ix.owned[owner] = append(ix.owned[owner], id)
}

// removeOwned swap-removes id from the owner's list: the last element moves
// into the vacated slot and its reverse lookup is updated.
func (ix *EnumerationIndex) removeOwned(id uint64, owner asset.Address) {
	list := ix.owned[owner]
	pos, ok := ix.ownedPos[id]
	if !ok || pos >= len(list) || list[pos] != id {
		panic(fmt.Sprintf("FATAL: enumeration index corrupt for asset %d owner %s", id, owner))
	}

	last := len(list) - 1
	if pos != last {
		moved := list[last]
		list[pos] = moved
		ix.ownedPos[moved] = pos
	}
	list = list[:last]
	delete(ix.ownedPos, id)

	if len(list) == 0 {
		delete(ix.owned, owner)
	} else {
		ix.owned[owner] = list
	}
}
