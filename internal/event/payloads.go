package event

import (
	"github.com/vim-labs/burni-tokens/internal/asset"
)

// Amounts are decimal strings of minimal units: they exceed int64 and JSON
// numbers lose precision past 2^53.

// TransferApplied records a committed base-asset transfer. MintedAssets is
// non-empty when the destination was the registry and the deposit minted.
type TransferApplied struct {
	From         asset.Address `json:"from"`
	To           asset.Address `json:"to"`
	Amount       string        `json:"amount"`
	MintedAssets []uint64      `json:"minted_assets,omitempty"`
}

func (*TransferApplied) EventType() Type { return TypeTransferApplied }

// AssetMinted records one derived asset created by a deposit.
type AssetMinted struct {
	AssetID   uint64        `json:"asset_id"`
	Owner     asset.Address `json:"owner"`
	Fee       string        `json:"fee"`
	FeePaidTo asset.Address `json:"fee_paid_to"`
	Burned    string        `json:"burned"`
}

func (*AssetMinted) EventType() Type { return TypeAssetMinted }

// AssetTransferred records a derived-asset ownership change.
type AssetTransferred struct {
	AssetID uint64        `json:"asset_id"`
	From    asset.Address `json:"from"`
	To      asset.Address `json:"to"`
	Caller  asset.Address `json:"caller"`
}

func (*AssetTransferred) EventType() Type { return TypeAssetTransferred }

// ApprovalSet records a new approved spender for an asset.
type ApprovalSet struct {
	AssetID uint64        `json:"asset_id"`
	Owner   asset.Address `json:"owner"`
	Spender asset.Address `json:"spender"`
}

func (*ApprovalSet) EventType() Type { return TypeApprovalSet }

// ApprovalCleared records an approval removal by the owner.
type ApprovalCleared struct {
	AssetID uint64        `json:"asset_id"`
	Owner   asset.Address `json:"owner"`
}

func (*ApprovalCleared) EventType() Type { return TypeApprovalCleared }

// MultihashSet records the one-time immutable hash write for an asset.
type MultihashSet struct {
	AssetID   uint64        `json:"asset_id"`
	Owner     asset.Address `json:"owner"`
	Multihash string        `json:"multihash"`
}

func (*MultihashSet) EventType() Type { return TypeMultihashSet }

// PaymentAddressUpdated records an administrator rotation.
type PaymentAddressUpdated struct {
	Previous asset.Address `json:"previous"`
	Current  asset.Address `json:"current"`
}

func (*PaymentAddressUpdated) EventType() Type { return TypePaymentAddressUpdated }

// BaseURIUpdated records a base locator change.
type BaseURIUpdated struct {
	BaseURI string        `json:"base_uri"`
	Caller  asset.Address `json:"caller"`
}

func (*BaseURIUpdated) EventType() Type { return TypeBaseURIUpdated }
