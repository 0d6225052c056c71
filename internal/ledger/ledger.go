package ledger

import (
	"fmt"
	"math/big"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

// DepositResult is what a deposit sink reports back after a successful
// mint-on-deposit: the assets it created and the balance movements it made
// through TransferHeld/BurnHeld.
type DepositResult struct {
	AssetIDs  []uint64
	Movements []Movement
}

// DepositSink receives the typed deposit notification for transfers whose
// destination is the sink's registered address. The notification runs as a
// synchronous continuation of the transfer: if it returns an error the whole
// transfer fails and balances are unchanged. A sink must not mutate any
// state before its last possible failure point.
type DepositSink interface {
	DepositReceived(sender asset.Address, amount *big.Int) (*DepositResult, error)
}

// Config is the construction-time shape of the base asset. Supply is in
// minimal units and is minted entirely to the deployer; no further issuance
// ever happens.
type Config struct {
	Name     string
	Symbol   string
	Decimals uint8
	Supply   *big.Int
	Deployer asset.Address
}

// Ledger holds base-asset balances and total supply. It is the exclusive
// owner of both; the registry reaches them only through Transfer,
// TransferHeld and BurnHeld. Not safe for concurrent use; the engine
// serializes all access.
type Ledger struct {
	name     string
	symbol   string
	decimals uint8

	balances map[asset.Address]*big.Int
	supply   *big.Int

	sinkAddr asset.Address
	sink     DepositSink
}

// New constructs the ledger with the full supply credited to the deployer.
func New(cfg Config) *Ledger {
	l := &Ledger{
		name:     cfg.Name,
		symbol:   cfg.Symbol,
		decimals: cfg.Decimals,
		balances: make(map[asset.Address]*big.Int),
		supply:   new(big.Int).Set(cfg.Supply),
	}
	if cfg.Supply.Sign() > 0 {
		l.balances[cfg.Deployer] = new(big.Int).Set(cfg.Supply)
	}
	return l
}

// SetDepositSink registers the address whose inbound transfers trigger the
// deposit notification. The ledger never inspects the sink's state; the
// hook is the only cross-component effect.
func (l *Ledger) SetDepositSink(addr asset.Address, sink DepositSink) {
	l.sinkAddr = addr
	l.sink = sink
}

// Name returns the base-asset name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the base-asset symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the implied fractional digit count.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// BalanceOf returns the current balance, zero if never funded. The returned
// value is a copy the caller may keep.
func (l *Ledger) BalanceOf(addr asset.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// TotalSupply returns the current supply. Monotonically non-increasing:
// it only shrinks on burns.
func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.supply)
}

// Receipt describes a committed transfer: the transfer movement itself plus
// the deposit outcome when the destination was the registered sink.
type Receipt struct {
	Movement Movement
	Deposit  *DepositResult
}

// Transfer moves amount from one account to another. When the destination
// is the registered sink address, the sink's deposit notification runs as
// part of the same operation; a sink failure unwinds the balance move so
// the caller observes all-or-nothing semantics.
func (l *Ledger) Transfer(from, to asset.Address, amount *big.Int) (*Receipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer of %v: %w", amount, asset.ErrInvalidAmount)
	}
	if l.BalanceOf(from).Cmp(amount) < 0 {
		return nil, fmt.Errorf("transfer %s from %s: %w", amount, from, asset.ErrInsufficientBalance)
	}

	l.move(from, to, amount)
	receipt := &Receipt{Movement: newMovement(MovementTransfer, from, to, amount)}

	if to == l.sinkAddr && l.sink != nil {
		deposit, err := l.sink.DepositReceived(from, amount)
		if err != nil {
			l.move(to, from, amount)
			return nil, err
		}
		receipt.Deposit = deposit
	}

	return receipt, nil
}

// TransferHeld moves amount out of the sink's held balance. Callable only
// by the deposit sink while handling a deposit notification, after it has
// verified the held balance covers every movement it will make.
func (l *Ledger) TransferHeld(to asset.Address, amount *big.Int) Movement {
	l.mustHold(amount)
	l.move(l.sinkAddr, to, amount)
	return newMovement(MovementFee, l.sinkAddr, to, amount)
}

// BurnHeld destroys amount from the sink's held balance and shrinks total
// supply by the same amount. True destruction: no account is credited.
// Same calling restriction as TransferHeld.
func (l *Ledger) BurnHeld(amount *big.Int) Movement {
	l.mustHold(amount)
	l.debit(l.sinkAddr, amount)
	l.supply.Sub(l.supply, amount)
	return newMovement(MovementBurn, l.sinkAddr, asset.ZeroAddress, amount)
}

// Snapshot returns a copy of all balances and the supply.
func (l *Ledger) Snapshot() (map[asset.Address]*big.Int, *big.Int) {
	balances := make(map[asset.Address]*big.Int, len(l.balances))
	for addr, b := range l.balances {
		balances[addr] = new(big.Int).Set(b)
	}
	return balances, new(big.Int).Set(l.supply)
}

// Restore overwrites ledger state from a snapshot.
func (l *Ledger) Restore(balances map[asset.Address]*big.Int, supply *big.Int) {
	l.balances = make(map[asset.Address]*big.Int, len(balances))
	for addr, b := range balances {
		if b.Sign() != 0 {
			l.balances[addr] = new(big.Int).Set(b)
		}
	}
	l.supply = new(big.Int).Set(supply)
}

func (l *Ledger) move(from, to asset.Address, amount *big.Int) {
	l.debit(from, amount)
	b, ok := l.balances[to]
	if !ok {
		b = new(big.Int)
		l.balances[to] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) debit(from asset.Address, amount *big.Int) {
	b := l.balances[from]
	if b == nil || b.Cmp(amount) < 0 {
		panic(fmt.Sprintf("FATAL: debit %s from %s exceeds balance", amount, from))
	}
	b.Sub(b, amount)
	if b.Sign() == 0 {
		delete(l.balances, from)
	}
}

func (l *Ledger) mustHold(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		panic("FATAL: non-positive held movement")
	}
	if l.BalanceOf(l.sinkAddr).Cmp(amount) < 0 {
		panic("FATAL: held movement exceeds sink balance")
	}
}
