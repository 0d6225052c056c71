package ledger_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/ledger"
)

var (
	deployer = asset.MustParseAddress("0x0000000000000000000000000000000000000001")
	alice    = asset.MustParseAddress("0x0000000000000000000000000000000000000002")
	bob      = asset.MustParseAddress("0x0000000000000000000000000000000000000003")
	sinkAddr = asset.MustParseAddress("0x00000000000000000000000000000000000000ff")
)

func newTestLedger(supplyUnits uint64) *ledger.Ledger {
	return ledger.New(ledger.Config{
		Name:     "Burni",
		Symbol:   "BURN",
		Decimals: 18,
		Supply:   asset.ScaleUnits(supplyUnits),
		Deployer: deployer,
	})
}

// recordingSink remembers deposit notifications; fail makes it reject them.
type recordingSink struct {
	ledger *ledger.Ledger
	calls  int
	fail   error
}

func (s *recordingSink) DepositReceived(sender asset.Address, amount *big.Int) (*ledger.DepositResult, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	// Act like a registry for one whole unit: pay a fee, burn the rest.
	fee := s.ledger.TransferHeld(deployer, asset.MintFee())
	burn := s.ledger.BurnHeld(asset.MintValuation())
	return &ledger.DepositResult{
		AssetIDs:  []uint64{1},
		Movements: []ledger.Movement{fee, burn},
	}, nil
}

// ============================================================================
// Test: construction
// ============================================================================

func TestLedger_SupplyMintedToDeployer(t *testing.T) {
	l := newTestLedger(1_000_000)

	if l.BalanceOf(deployer).Cmp(asset.ScaleUnits(1_000_000)) != 0 {
		t.Errorf("deployer balance: got %s", l.BalanceOf(deployer))
	}
	if l.TotalSupply().Cmp(asset.ScaleUnits(1_000_000)) != 0 {
		t.Errorf("supply: got %s", l.TotalSupply())
	}
	if l.BalanceOf(alice).Sign() != 0 {
		t.Errorf("unfunded balance: got %s, want 0", l.BalanceOf(alice))
	}
}

// ============================================================================
// Test: Transfer
// ============================================================================

func TestTransfer_MovesBalance(t *testing.T) {
	l := newTestLedger(100)

	receipt, err := l.Transfer(deployer, alice, asset.ScaleUnits(30))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if l.BalanceOf(deployer).Cmp(asset.ScaleUnits(70)) != 0 {
		t.Errorf("deployer: got %s", l.BalanceOf(deployer))
	}
	if l.BalanceOf(alice).Cmp(asset.ScaleUnits(30)) != 0 {
		t.Errorf("alice: got %s", l.BalanceOf(alice))
	}

	m := receipt.Movement
	if m.Kind != ledger.MovementTransfer || m.From != deployer || m.To != alice {
		t.Errorf("movement: %+v", m)
	}
	if m.Amount.Cmp(asset.ScaleUnits(30)) != 0 {
		t.Errorf("movement amount: got %s", m.Amount)
	}
	if receipt.Deposit != nil {
		t.Error("plain transfer should carry no deposit result")
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	l := newTestLedger(10)

	_, err := l.Transfer(alice, bob, asset.ScaleUnits(1))
	if !errors.Is(err, asset.ErrInsufficientBalance) {
		t.Errorf("got %v, want ErrInsufficientBalance", err)
	}

	_, err = l.Transfer(deployer, alice, asset.ScaleUnits(11))
	if !errors.Is(err, asset.ErrInsufficientBalance) {
		t.Errorf("got %v, want ErrInsufficientBalance", err)
	}
	if l.BalanceOf(deployer).Cmp(asset.ScaleUnits(10)) != 0 {
		t.Error("rejected transfer must not change balances")
	}
}

func TestTransfer_NonPositiveAmount(t *testing.T) {
	l := newTestLedger(10)

	_, err := l.Transfer(deployer, alice, big.NewInt(0))
	if !errors.Is(err, asset.ErrInvalidAmount) {
		t.Errorf("zero: got %v, want ErrInvalidAmount", err)
	}
	_, err = l.Transfer(deployer, alice, big.NewInt(-5))
	if !errors.Is(err, asset.ErrInvalidAmount) {
		t.Errorf("negative: got %v, want ErrInvalidAmount", err)
	}
}

func TestTransfer_ExactBalanceDrainsAccount(t *testing.T) {
	l := newTestLedger(5)

	if _, err := l.Transfer(deployer, alice, asset.ScaleUnits(5)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if l.BalanceOf(deployer).Sign() != 0 {
		t.Errorf("drained account: got %s, want 0", l.BalanceOf(deployer))
	}
}

// ============================================================================
// Test: deposit sink
// ============================================================================

func TestTransfer_ToSinkNotifies(t *testing.T) {
	l := newTestLedger(100)
	sink := &recordingSink{ledger: l}
	l.SetDepositSink(sinkAddr, sink)

	receipt, err := l.Transfer(deployer, sinkAddr, asset.ScaleUnits(1))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if sink.calls != 1 {
		t.Errorf("sink calls: got %d, want 1", sink.calls)
	}
	if receipt.Deposit == nil || len(receipt.Deposit.AssetIDs) != 1 {
		t.Fatalf("deposit result: %+v", receipt.Deposit)
	}

	// One unit in: fee back to deployer, rest burned, sink holds nothing.
	if l.BalanceOf(sinkAddr).Sign() != 0 {
		t.Errorf("sink balance: got %s, want 0", l.BalanceOf(sinkAddr))
	}
	wantSupply := new(big.Int).Sub(asset.ScaleUnits(100), asset.MintValuation())
	if l.TotalSupply().Cmp(wantSupply) != 0 {
		t.Errorf("supply: got %s, want %s", l.TotalSupply(), wantSupply)
	}
	wantDeployer := new(big.Int).Sub(asset.ScaleUnits(100), asset.Unit())
	wantDeployer.Add(wantDeployer, asset.MintFee())
	if l.BalanceOf(deployer).Cmp(wantDeployer) != 0 {
		t.Errorf("deployer: got %s, want %s", l.BalanceOf(deployer), wantDeployer)
	}
}

func TestTransfer_ToOtherAddressDoesNotNotify(t *testing.T) {
	l := newTestLedger(100)
	sink := &recordingSink{ledger: l}
	l.SetDepositSink(sinkAddr, sink)

	if _, err := l.Transfer(deployer, alice, asset.ScaleUnits(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if sink.calls != 0 {
		t.Errorf("sink calls: got %d, want 0", sink.calls)
	}
}

func TestTransfer_SinkFailureUnwinds(t *testing.T) {
	l := newTestLedger(100)
	sink := &recordingSink{ledger: l, fail: asset.ErrInvalidAmount}
	l.SetDepositSink(sinkAddr, sink)

	_, err := l.Transfer(deployer, sinkAddr, asset.ScaleUnits(1))
	if !errors.Is(err, asset.ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}

	if l.BalanceOf(deployer).Cmp(asset.ScaleUnits(100)) != 0 {
		t.Errorf("deployer after unwind: got %s", l.BalanceOf(deployer))
	}
	if l.BalanceOf(sinkAddr).Sign() != 0 {
		t.Errorf("sink after unwind: got %s, want 0", l.BalanceOf(sinkAddr))
	}
	if l.TotalSupply().Cmp(asset.ScaleUnits(100)) != 0 {
		t.Errorf("supply after unwind: got %s", l.TotalSupply())
	}
}

// ============================================================================
// Test: snapshot / restore
// ============================================================================

func TestLedger_SnapshotRestore(t *testing.T) {
	l := newTestLedger(100)
	if _, err := l.Transfer(deployer, alice, asset.ScaleUnits(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	balances, supply := l.Snapshot()

	restored := newTestLedger(0)
	restored.Restore(balances, supply)

	if restored.BalanceOf(deployer).Cmp(asset.ScaleUnits(60)) != 0 {
		t.Errorf("deployer: got %s", restored.BalanceOf(deployer))
	}
	if restored.BalanceOf(alice).Cmp(asset.ScaleUnits(40)) != 0 {
		t.Errorf("alice: got %s", restored.BalanceOf(alice))
	}
	if restored.TotalSupply().Cmp(asset.ScaleUnits(100)) != 0 {
		t.Errorf("supply: got %s", restored.TotalSupply())
	}

	// The snapshot is a copy, not a view.
	balances[deployer].SetInt64(0)
	if restored.BalanceOf(deployer).Sign() == 0 {
		t.Error("restored ledger must not alias snapshot values")
	}
}
