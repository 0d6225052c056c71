package core

import (
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vim-labs/burni-tokens/internal/access"
	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/event"
	"github.com/vim-labs/burni-tokens/internal/ledger"
	"github.com/vim-labs/burni-tokens/internal/observability"
	"github.com/vim-labs/burni-tokens/internal/registry"
)

// ErrDuplicate rejects a mutation whose idempotency key was already
// committed. The original commit stands; nothing is re-applied.
var ErrDuplicate = errors.New("duplicate operation")

// Output is what the engine emits per committed event: the envelope for
// the event log, the typed payload for publishing, and the balance
// movements (attached to the first event of an operation).
type Output struct {
	Envelope  *event.Envelope
	Event     event.Event
	Movements []ledger.Movement
}

// Config is the construction-time configuration of the whole system:
// the fixed-supply base asset and the single derived-asset registry.
type Config struct {
	TokenName     string
	TokenSymbol   string
	TokenDecimals uint8
	// TotalSupply is in minimal units, minted entirely to the deployer.
	TotalSupply *big.Int
	// Deployer receives the supply and is the first administrator.
	Deployer asset.Address

	RegistryName    string
	RegistrySymbol  string
	RegistryAddress asset.Address
	BaseTokenURI    string

	IdempotencyCapacity int
}

// Deps are the engine's runtime collaborators. Channels may be nil when the
// corresponding worker is not running (in-memory-only mode, tests).
type Deps struct {
	PersistChan    chan<- Output
	ProjectionChan chan<- Output
	PublishChan    chan<- Output
	DBChecker      DBIdempotencyChecker
	Metrics        *observability.Metrics
	Logger         zerolog.Logger
}

// Engine is the single-writer execution context over the combined state of
// the balance ledger and the asset registry. External operations are
// serialized through one mutex; each operation observes the effects of all
// earlier ones and either commits entirely or not at all. All domain
// mutations validate before they apply, so a rejected operation leaves no
// partial state behind.
type Engine struct {
	mu sync.Mutex

	sequence int64
	hasher   *StateHasher

	ledger   *ledger.Ledger
	registry *registry.Registry
	admin    *access.Controller

	idempotency *IdempotencyChecker
	metrics     *observability.Metrics
	log         zerolog.Logger

	persistChan    chan<- Output
	projectionChan chan<- Output
	publishChan    chan<- Output
}

// New wires the ledger, registry and access controller together: the
// registry is registered as the ledger's deposit sink under its configured
// address, so transfers to that address trigger minting and nothing else
// does.
func New(cfg Config, deps Deps) *Engine {
	admin := access.New(cfg.Deployer, cfg.BaseTokenURI)

	led := ledger.New(ledger.Config{
		Name:     cfg.TokenName,
		Symbol:   cfg.TokenSymbol,
		Decimals: cfg.TokenDecimals,
		Supply:   cfg.TotalSupply,
		Deployer: cfg.Deployer,
	})

	reg := registry.New(registry.Config{
		Name:    cfg.RegistryName,
		Symbol:  cfg.RegistrySymbol,
		Address: cfg.RegistryAddress,
	}, led, admin)

	led.SetDepositSink(cfg.RegistryAddress, reg)

	capacity := cfg.IdempotencyCapacity
	if capacity <= 0 {
		capacity = 100_000
	}

	return &Engine{
		hasher:         NewStateHasher(),
		ledger:         led,
		registry:       reg,
		admin:          admin,
		idempotency:    NewIdempotencyChecker(capacity, deps.DBChecker),
		metrics:        deps.Metrics,
		log:            deps.Logger,
		persistChan:    deps.PersistChan,
		projectionChan: deps.ProjectionChan,
		publishChan:    deps.PublishChan,
	}
}

// --- Mutations ---

// TransferResult reports a committed base-asset transfer.
type TransferResult struct {
	Sequence     int64
	MintedAssets []uint64
}

// Transfer moves base asset from the caller to another account. A transfer
// to the registry's address additionally mints one asset per whole unit as
// a synchronous continuation; if minting fails the transfer fails too.
func (e *Engine) Transfer(caller, to asset.Address, amount *big.Int, idemKey string) (*TransferResult, error) {
	result := &TransferResult{}

	seq, err := e.run("transfer", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		receipt, err := e.ledger.Transfer(caller, to, amount)
		if err != nil {
			return nil, nil, err
		}

		applied := &event.TransferApplied{
			From:   caller,
			To:     to,
			Amount: amount.String(),
		}
		events := []event.Event{applied}
		movements := []ledger.Movement{receipt.Movement}

		if receipt.Deposit != nil {
			applied.MintedAssets = receipt.Deposit.AssetIDs
			result.MintedAssets = receipt.Deposit.AssetIDs
			movements = append(movements, receipt.Deposit.Movements...)
			events = append(events, e.mintEvents(caller, receipt.Deposit)...)
			e.recordMintMetrics(len(receipt.Deposit.AssetIDs))
		}

		return events, movements, nil
	})
	if err != nil {
		return nil, err
	}

	result.Sequence = seq
	return result, nil
}

// Approve sets the approved spender for an asset. Caller must be the owner.
func (e *Engine) Approve(caller, spender asset.Address, id uint64, idemKey string) error {
	_, err := e.run("approve", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		if err := e.registry.Approve(caller, spender, id); err != nil {
			return nil, nil, err
		}
		return []event.Event{&event.ApprovalSet{AssetID: id, Owner: caller, Spender: spender}}, nil, nil
	})
	return err
}

// ClearApproval clears an asset's approved spender. Caller must be the
// owner; an approved spender cannot clear its own approval.
func (e *Engine) ClearApproval(caller, owner asset.Address, id uint64, idemKey string) error {
	_, err := e.run("clear_approval", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		if err := e.registry.ClearApproval(caller, owner, id); err != nil {
			return nil, nil, err
		}
		return []event.Event{&event.ApprovalCleared{AssetID: id, Owner: owner}}, nil, nil
	})
	return err
}

// TransferAsset moves a derived asset between owners. Caller must be the
// owner or the approved spender; approval is cleared on success.
func (e *Engine) TransferAsset(caller, from, to asset.Address, id uint64, idemKey string) error {
	_, err := e.run("transfer_asset", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		if err := e.registry.TransferFrom(caller, from, to, id); err != nil {
			return nil, nil, err
		}
		return []event.Event{&event.AssetTransferred{AssetID: id, From: from, To: to, Caller: caller}}, nil, nil
	})
	return err
}

// SetImmutableMultihash records an asset's write-once content hash.
func (e *Engine) SetImmutableMultihash(caller asset.Address, multihash string, id uint64, idemKey string) error {
	_, err := e.run("set_multihash", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		if err := e.registry.SetImmutableMultihash(caller, multihash, id); err != nil {
			return nil, nil, err
		}
		return []event.Event{&event.MultihashSet{AssetID: id, Owner: caller, Multihash: multihash}}, nil, nil
	})
	return err
}

// UpdatePaymentAddress rotates the administrator address.
func (e *Engine) UpdatePaymentAddress(caller, next asset.Address, idemKey string) error {
	_, err := e.run("update_payment_address", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		previous := e.admin.PaymentAddress()
		if err := e.admin.UpdatePaymentAddress(caller, next); err != nil {
			return nil, nil, err
		}
		return []event.Event{&event.PaymentAddressUpdated{Previous: previous, Current: next}}, nil, nil
	})
	return err
}

// UpdateBaseTokenURI replaces the shared base locator.
func (e *Engine) UpdateBaseTokenURI(caller asset.Address, locator string, idemKey string) error {
	_, err := e.run("update_base_uri", idemKey, func() ([]event.Event, []ledger.Movement, error) {
		if err := e.admin.UpdateBaseTokenURI(caller, locator); err != nil {
			return nil, nil, err
		}
		return []event.Event{&event.BaseURIUpdated{BaseURI: locator, Caller: caller}}, nil, nil
	})
	return err
}

// --- Reads ---

// BalanceOf returns an account's base-asset balance.
func (e *Engine) BalanceOf(addr asset.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(addr)
}

// TotalSupply returns the base-asset supply.
func (e *Engine) TotalSupply() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.TotalSupply()
}

// OwnerOf returns an asset's current owner.
func (e *Engine) OwnerOf(id uint64) (asset.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.OwnerOf(id)
}

// ApprovedFor returns an asset's approved spender, zero if none.
func (e *Engine) ApprovedFor(id uint64) (asset.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.ApprovedFor(id)
}

// AssetBalanceOf returns how many derived assets an owner holds.
func (e *Engine) AssetBalanceOf(owner asset.Address) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.BalanceOf(owner)
}

// AssetCount returns the number of minted assets.
func (e *Engine) AssetCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TotalSupply()
}

// TokenByIndex returns the asset id at a global enumeration position.
func (e *Engine) TokenByIndex(i int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TokenByIndex(i)
}

// TokenOfOwnerByIndex returns the asset id at an owner enumeration position.
func (e *Engine) TokenOfOwnerByIndex(owner asset.Address, i int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TokenOfOwnerByIndex(owner, i)
}

// Exists reports whether an asset id has been minted.
func (e *Engine) Exists(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Exists(id)
}

// TokenURI returns an asset's composed locator.
func (e *Engine) TokenURI(id uint64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TokenURI(id)
}

// Multihash returns an asset's immutable hash, empty if unset.
func (e *Engine) Multihash(id uint64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Multihash(id)
}

// BaseTokenURI returns the shared base locator.
func (e *Engine) BaseTokenURI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admin.BaseTokenURI()
}

// PaymentAddress returns the current administrator.
func (e *Engine) PaymentAddress() asset.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admin.PaymentAddress()
}

// SupportsInterface answers membership in the declared capability set.
func (e *Engine) SupportsInterface(id asset.InterfaceID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SupportsInterface(id)
}

// Sequence returns the next sequence the engine will assign.
func (e *Engine) Sequence() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// Info is the static and live shape of both assets.
type Info struct {
	TokenName        string        `json:"token_name"`
	TokenSymbol      string        `json:"token_symbol"`
	TokenDecimals    uint8         `json:"token_decimals"`
	TokenSupply      string        `json:"token_supply"`
	RegistryName     string        `json:"registry_name"`
	RegistrySymbol   string        `json:"registry_symbol"`
	RegistryDecimals uint8         `json:"registry_decimals"`
	RegistryAssets   uint64        `json:"registry_assets"`
	RegistryAddress  asset.Address `json:"registry_address"`
	PaymentAddress   asset.Address `json:"payment_address"`
	BaseTokenURI     string        `json:"base_token_uri"`
	Sequence         int64         `json:"sequence"`
}

// Info returns a consistent snapshot of system-level metadata.
func (e *Engine) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Info{
		TokenName:        e.ledger.Name(),
		TokenSymbol:      e.ledger.Symbol(),
		TokenDecimals:    e.ledger.Decimals(),
		TokenSupply:      e.ledger.TotalSupply().String(),
		RegistryName:     e.registry.Name(),
		RegistrySymbol:   e.registry.Symbol(),
		RegistryDecimals: e.registry.Decimals(),
		RegistryAssets:   e.registry.TotalSupply(),
		RegistryAddress:  e.registry.Address(),
		PaymentAddress:   e.admin.PaymentAddress(),
		BaseTokenURI:     e.admin.BaseTokenURI(),
		Sequence:         e.sequence,
	}
}

// --- Commit pipeline ---

// run executes one mutation under the engine lock: idempotency check,
// domain apply (validate-then-mutate, so a returned error means nothing
// changed), then envelope/hash/emit per produced event. Returns the first
// sequence assigned to the operation.
func (e *Engine) run(op, idemKey string, apply func() ([]event.Event, []ledger.Movement, error)) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if idemKey != "" {
		if dup, tier := e.idempotency.IsDuplicate(idemKey); dup {
			if e.metrics != nil {
				e.metrics.IdempotencyDuplicates.WithLabelValues(op, tier).Inc()
			}
			return 0, ErrDuplicate
		}
	}

	firstSeq := e.sequence

	events, movements, err := apply()
	if err != nil {
		if e.metrics != nil {
			e.metrics.OpsRejected.WithLabelValues(op, rejectReason(err)).Inc()
		}
		e.log.Debug().Str("op", op).Err(err).Msg("operation rejected")
		return 0, err
	}

	for i, evt := range events {
		var attach []ledger.Movement
		if i == 0 {
			attach = movements
		}
		e.commit(evt, idemKey, attach)
	}

	if idemKey != "" {
		e.idempotency.MarkProcessed(idemKey)
	}

	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		e.metrics.Sequence.Set(float64(e.sequence))
	}

	e.log.Info().
		Str("op", op).
		Int64("sequence", firstSeq).
		Int("events", len(events)).
		Msg("operation committed")

	return firstSeq, nil
}

func (e *Engine) commit(evt event.Event, idemKey string, movements []ledger.Movement) {
	payload, err := json.Marshal(evt)
	if err != nil {
		// Payloads are plain structs of strings and integers; this cannot
		// fail for well-formed state.
		panic("FATAL: marshal event payload: " + err.Error())
	}

	prev := e.hasher.GetPrevHash()
	hash := e.hasher.ComputeHash(e.sequence, payload)

	envelope := &event.Envelope{
		Sequence:       e.sequence,
		IdempotencyKey: idemKey,
		EventType:      evt.EventType(),
		Timestamp:      time.Now().UTC(),
		Payload:        payload,
		StateHash:      hash,
		PrevHash:       prev,
	}

	e.sequence++
	e.emit(Output{Envelope: envelope, Event: evt, Movements: movements})
}

// emit hands a committed output to the downstream workers. The persist
// channel blocks (no committed event may be lost); projection and publish
// channels drop when full, since both can be rebuilt or re-read from the
// event log.
func (e *Engine) emit(out Output) {
	if e.persistChan != nil {
		e.persistChan <- out
	}

	if e.projectionChan != nil {
		select {
		case e.projectionChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.ProjectionDrops.Inc()
			}
		}
	}

	if e.publishChan != nil {
		select {
		case e.publishChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}
}

// mintEvents expands a deposit result into one AssetMinted per asset,
// pairing each id with its fee and burn movements.
func (e *Engine) mintEvents(owner asset.Address, deposit *ledger.DepositResult) []event.Event {
	events := make([]event.Event, 0, len(deposit.AssetIDs))

	for i, id := range deposit.AssetIDs {
		minted := &event.AssetMinted{
			AssetID: id,
			Owner:   owner,
		}
		// Movements come in (fee, burn) pairs, one pair per minted asset.
		if 2*i+1 < len(deposit.Movements) {
			fee := deposit.Movements[2*i]
			burn := deposit.Movements[2*i+1]
			minted.Fee = fee.Amount.String()
			minted.FeePaidTo = fee.To
			minted.Burned = burn.Amount.String()
		}
		events = append(events, minted)
	}

	return events
}

func (e *Engine) recordMintMetrics(count int) {
	if e.metrics == nil || count == 0 {
		return
	}
	e.metrics.AssetsMinted.Add(float64(count))
	e.metrics.FeesPaidUnits.Add(float64(count) / float64(asset.FeeDivisor))
	e.metrics.BurnedUnits.Add(float64(count) * (1 - 1/float64(asset.FeeDivisor)))
	e.metrics.RegistryAssets.Set(float64(e.registry.TotalSupply()))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, asset.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, asset.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, asset.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, asset.ErrAlreadySet):
		return "already_set"
	case errors.Is(err, asset.ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, asset.ErrNotFound):
		return "not_found"
	case errors.Is(err, asset.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, asset.ErrInvalidMultihash):
		return "invalid_multihash"
	default:
		return "other"
	}
}
