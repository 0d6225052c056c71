package api

// Request bodies carry amounts and addresses as strings; amounts exceed
// int64 and JSON numbers lose precision past 2^53.

type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type TransferResponse struct {
	Sequence     int64    `json:"sequence,omitempty"`
	MintedAssets []uint64 `json:"minted_assets,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Error   string `json:"error,omitempty"`
}

type SupplyResponse struct {
	Supply string `json:"supply"`
}

type ApproveRequest struct {
	Spender string `json:"spender"`
}

type ClearApprovalRequest struct {
	Owner string `json:"owner"`
}

type AssetTransferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MultihashRequest struct {
	Multihash string `json:"multihash"`
}

type AssetResponse struct {
	AssetID   uint64 `json:"asset_id,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Approved  string `json:"approved,omitempty"`
	Multihash string `json:"multihash,omitempty"`
	URI       string `json:"uri,omitempty"`
	Error     string `json:"error,omitempty"`
}

type AssetURIResponse struct {
	AssetID uint64 `json:"asset_id,omitempty"`
	URI     string `json:"uri,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AssetIndexResponse struct {
	Index   int    `json:"index"`
	AssetID uint64 `json:"asset_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AssetCountResponse struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

type PaymentAddressRequest struct {
	Address string `json:"address"`
}

type BaseURIRequest struct {
	BaseURI string `json:"base_uri"`
}

type InterfaceResponse struct {
	InterfaceID string `json:"interface_id"`
	Supported   bool   `json:"supported"`
	Error       string `json:"error,omitempty"`
}

type SequenceResponse struct {
	Sequence int64  `json:"sequence,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
