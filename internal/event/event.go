package event

import (
	"time"
)

// Type discriminates committed-operation events.
type Type int32

const (
	TypeUnknown Type = iota
	TypeTransferApplied
	TypeAssetMinted
	TypeAssetTransferred
	TypeApprovalSet
	TypeApprovalCleared
	TypeMultihashSet
	TypePaymentAddressUpdated
	TypeBaseURIUpdated
)

func (t Type) String() string {
	switch t {
	case TypeTransferApplied:
		return "TransferApplied"
	case TypeAssetMinted:
		return "AssetMinted"
	case TypeAssetTransferred:
		return "AssetTransferred"
	case TypeApprovalSet:
		return "ApprovalSet"
	case TypeApprovalCleared:
		return "ApprovalCleared"
	case TypeMultihashSet:
		return "MultihashSet"
	case TypePaymentAddressUpdated:
		return "PaymentAddressUpdated"
	case TypeBaseURIUpdated:
		return "BaseURIUpdated"
	default:
		return "Unknown"
	}
}

// Envelope wraps every committed operation in the event log. The state hash
// chains each event to its predecessor so the log's integrity is checkable
// end to end.
type Envelope struct {
	// Global monotonic sequence assigned by the engine.
	Sequence int64

	// Client-supplied idempotency key, empty if none was attached.
	IdempotencyKey string

	// Event type discriminator.
	EventType Type

	// Commit time (wall clock of the single writer).
	Timestamp time.Time

	// JSON-encoded event payload.
	Payload []byte

	// SHA-256 of engine state after applying this operation.
	StateHash [32]byte

	// Previous event's state hash.
	PrevHash [32]byte
}

// Event is implemented by all committed-operation payloads.
type Event interface {
	EventType() Type
}
