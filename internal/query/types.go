package query

// BalanceResponse is a projected base-asset balance for API queries.
type BalanceResponse struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// MovementHistoryEntry is one ledger movement touching an address.
type MovementHistoryEntry struct {
	MovementID  string `json:"movement_id"`
	Sequence    int64  `json:"sequence"`
	Kind        string `json:"kind"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Amount      string `json:"amount"`
}

// MovementHistoryResponse is a page of movements for one address.
type MovementHistoryResponse struct {
	Address      string                 `json:"address"`
	Movements    []MovementHistoryEntry `json:"movements"`
	AsOfSequence int64                  `json:"as_of_sequence"`
}

// AssetResponse is a projected derived-asset record for API queries.
type AssetResponse struct {
	AssetID      uint64 `json:"asset_id"`
	Owner        string `json:"owner"`
	Approved     string `json:"approved,omitempty"`
	Multihash    string `json:"multihash,omitempty"`
	AsOfSequence int64  `json:"as_of_sequence"`
}
