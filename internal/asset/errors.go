package asset

import "errors"

// Failure taxonomy shared by the ledger, the registry, and the access
// controller. Every failure aborts the enclosing operation with no partial
// state change; callers see a rejected operation and decide whether to
// retry with corrected inputs.
var (
	// ErrInsufficientBalance - a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnauthorized - the caller lacks the required role or approval.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotOwner - the stated owner does not own the asset.
	ErrNotOwner = errors.New("not the asset owner")

	// ErrAlreadySet - rewrite attempt on a write-once field.
	ErrAlreadySet = errors.New("immutable value already set")

	// ErrIndexOutOfRange - an enumeration index past the end of a list.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotFound - a query on a nonexistent asset id.
	ErrNotFound = errors.New("asset not found")

	// ErrInvalidAmount - a deposit into the registry that is not a positive
	// multiple of one whole unit, or a malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidMultihash - a multihash string in neither base58 nor hex form.
	ErrInvalidMultihash = errors.New("invalid multihash")
)
