package ledger

import (
	"math/big"

	"github.com/google/uuid"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

// MovementKind discriminates the three ways value moves through the ledger.
type MovementKind int32

const (
	// MovementTransfer moves value between two accounts.
	MovementTransfer MovementKind = iota

	// MovementFee pays the per-mint fee from the registry's held balance to
	// the administrator.
	MovementFee

	// MovementBurn destroys value from the registry's held balance and
	// shrinks total supply. No account is credited.
	MovementBurn
)

func (k MovementKind) String() string {
	switch k {
	case MovementTransfer:
		return "transfer"
	case MovementFee:
		return "fee"
	case MovementBurn:
		return "burn"
	default:
		return "unknown"
	}
}

// Movement is one atomic balance change, recorded for the event log and the
// projection tables. Amount is always positive; for burns To is the zero
// address.
type Movement struct {
	MovementID uuid.UUID
	Kind       MovementKind
	From       asset.Address
	To         asset.Address
	Amount     *big.Int
}

func newMovement(kind MovementKind, from, to asset.Address, amount *big.Int) Movement {
	return Movement{
		MovementID: uuid.New(),
		Kind:       kind,
		From:       from,
		To:         to,
		Amount:     new(big.Int).Set(amount),
	}
}
