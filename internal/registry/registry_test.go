package registry_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vim-labs/burni-tokens/internal/access"
	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/ledger"
	"github.com/vim-labs/burni-tokens/internal/registry"
)

var (
	deployer = asset.MustParseAddress("0x0000000000000000000000000000000000000001")
	k1       = asset.MustParseAddress("0x0000000000000000000000000000000000000002")
	k2       = asset.MustParseAddress("0x0000000000000000000000000000000000000003")
	regAddr  = asset.MustParseAddress("0x00000000000000000000000000000000000000ff")
)

// newTestSystem wires a funded ledger, an access controller and the
// registry the same way the engine does.
func newTestSystem(t *testing.T, supplyUnits uint64) (*ledger.Ledger, *registry.Registry, *access.Controller) {
	t.Helper()

	admin := access.New(deployer, "https://burni.co/nft/")
	led := ledger.New(ledger.Config{
		Name:     "Burni",
		Symbol:   "BURN",
		Decimals: 18,
		Supply:   asset.ScaleUnits(supplyUnits),
		Deployer: deployer,
	})
	reg := registry.New(registry.Config{
		Name:    "Burnin",
		Symbol:  "BURNIN",
		Address: regAddr,
	}, led, admin)
	led.SetDepositSink(regAddr, reg)

	return led, reg, admin
}

func mint(t *testing.T, led *ledger.Ledger, from asset.Address, units uint64) []uint64 {
	t.Helper()
	receipt, err := led.Transfer(from, regAddr, asset.ScaleUnits(units))
	if err != nil {
		t.Fatalf("mint transfer: %v", err)
	}
	if receipt.Deposit == nil {
		t.Fatal("deposit transfer produced no deposit result")
	}
	return receipt.Deposit.AssetIDs
}

// ============================================================================
// Test: mint protocol
// ============================================================================

func TestMint_SequentialIDsFromOne(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)

	ids := mint(t, led, deployer, 3)
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("ids: got %v, want [1 2 3]", ids)
	}
	if reg.TotalSupply() != 3 {
		t.Errorf("registry supply: got %d, want 3", reg.TotalSupply())
	}

	owner, err := reg.OwnerOf(1)
	if err != nil {
		t.Fatalf("OwnerOf: %v", err)
	}
	if owner != deployer {
		t.Errorf("owner: got %s, want %s", owner, deployer)
	}
}

func TestMint_FeeAndBurnPerUnit(t *testing.T) {
	led, _, _ := newTestSystem(t, 100)
	if _, err := led.Transfer(deployer, k1, asset.ScaleUnits(10)); err != nil {
		t.Fatalf("fund k1: %v", err)
	}

	mint(t, led, k1, 2)

	// k1 paid 2 units; deployer (administrator) got 2 fees back.
	wantK1 := asset.ScaleUnits(8)
	if led.BalanceOf(k1).Cmp(wantK1) != 0 {
		t.Errorf("k1: got %s, want %s", led.BalanceOf(k1), wantK1)
	}
	wantAdmin := new(big.Int).Add(asset.ScaleUnits(90), new(big.Int).Mul(asset.MintFee(), big.NewInt(2)))
	if led.BalanceOf(deployer).Cmp(wantAdmin) != 0 {
		t.Errorf("admin: got %s, want %s", led.BalanceOf(deployer), wantAdmin)
	}

	// Supply shrank by two valuations; the registry holds nothing.
	wantSupply := new(big.Int).Sub(asset.ScaleUnits(100), new(big.Int).Mul(asset.MintValuation(), big.NewInt(2)))
	if led.TotalSupply().Cmp(wantSupply) != 0 {
		t.Errorf("supply: got %s, want %s", led.TotalSupply(), wantSupply)
	}
	if led.BalanceOf(regAddr).Sign() != 0 {
		t.Errorf("registry balance: got %s, want 0", led.BalanceOf(regAddr))
	}
}

func TestMint_FeeGoesToCurrentAdmin(t *testing.T) {
	led, _, admin := newTestSystem(t, 100)
	if _, err := led.Transfer(deployer, k1, asset.ScaleUnits(5)); err != nil {
		t.Fatalf("fund k1: %v", err)
	}
	if err := admin.UpdatePaymentAddress(deployer, k2); err != nil {
		t.Fatalf("rotate admin: %v", err)
	}

	mint(t, led, k1, 1)

	if led.BalanceOf(k2).Cmp(asset.MintFee()) != 0 {
		t.Errorf("new admin fee: got %s, want %s", led.BalanceOf(k2), asset.MintFee())
	}
}

func TestMint_RejectsNonWholeDeposits(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)

	half := new(big.Int).Div(asset.Unit(), big.NewInt(2))
	_, err := led.Transfer(deployer, regAddr, half)
	if !errors.Is(err, asset.ErrInvalidAmount) {
		t.Fatalf("half unit: got %v, want ErrInvalidAmount", err)
	}

	over := new(big.Int).Add(asset.Unit(), big.NewInt(1))
	_, err = led.Transfer(deployer, regAddr, over)
	if !errors.Is(err, asset.ErrInvalidAmount) {
		t.Fatalf("unit+1: got %v, want ErrInvalidAmount", err)
	}

	// Nothing minted, nothing moved.
	if reg.TotalSupply() != 0 {
		t.Errorf("registry supply: got %d, want 0", reg.TotalSupply())
	}
	if led.BalanceOf(deployer).Cmp(asset.ScaleUnits(100)) != 0 {
		t.Errorf("deployer: got %s", led.BalanceOf(deployer))
	}
}

func TestMint_MixedOwnersEnumeration(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	if _, err := led.Transfer(deployer, k1, asset.ScaleUnits(10)); err != nil {
		t.Fatalf("fund k1: %v", err)
	}

	mint(t, led, deployer, 3) // ids 1, 2, 3
	mint(t, led, k1, 1)       // id 4

	id, err := reg.TokenByIndex(2)
	if err != nil {
		t.Fatalf("TokenByIndex: %v", err)
	}
	if id != 3 {
		t.Errorf("global[2]: got %d, want 3", id)
	}

	id, err = reg.TokenOfOwnerByIndex(k1, 0)
	if err != nil {
		t.Fatalf("TokenOfOwnerByIndex: %v", err)
	}
	if id != 4 {
		t.Errorf("k1[0]: got %d, want 4", id)
	}

	if reg.BalanceOf(deployer) != 3 {
		t.Errorf("deployer count: got %d, want 3", reg.BalanceOf(deployer))
	}
	if reg.BalanceOf(k1) != 1 {
		t.Errorf("k1 count: got %d, want 1", reg.BalanceOf(k1))
	}
}

// ============================================================================
// Test: ownership and approval
// ============================================================================

func TestTransferFrom_ByOwner(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	if err := reg.TransferFrom(deployer, deployer, k1, 1); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	owner, _ := reg.OwnerOf(1)
	if owner != k1 {
		t.Errorf("owner: got %s, want %s", owner, k1)
	}
	if reg.BalanceOf(deployer) != 0 || reg.BalanceOf(k1) != 1 {
		t.Errorf("counts: deployer=%d k1=%d", reg.BalanceOf(deployer), reg.BalanceOf(k1))
	}
}

func TestTransferFrom_ByApprovedSpender(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	if err := reg.Approve(deployer, k1, 1); err != nil {
		t.Fatalf("approve: %v", err)
	}
	approved, _ := reg.ApprovedFor(1)
	if approved != k1 {
		t.Errorf("approved: got %s, want %s", approved, k1)
	}

	if err := reg.TransferFrom(k1, deployer, k2, 1); err != nil {
		t.Fatalf("spender transfer: %v", err)
	}
	owner, _ := reg.OwnerOf(1)
	if owner != k2 {
		t.Errorf("owner: got %s, want %s", owner, k2)
	}

	// Approval does not survive the transfer.
	approved, _ = reg.ApprovedFor(1)
	if !approved.IsZero() {
		t.Errorf("approval after transfer: got %s, want zero", approved)
	}
}

func TestTransferFrom_Unauthorized(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	err := reg.TransferFrom(k1, deployer, k1, 1)
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestTransferFrom_WrongStatedOwner(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	err := reg.TransferFrom(deployer, k1, k2, 1)
	if !errors.Is(err, asset.ErrNotOwner) {
		t.Errorf("got %v, want ErrNotOwner", err)
	}
}

func TestApprove_OnlyOwner(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	err := reg.Approve(k1, k1, 1)
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestApprove_OverwritesPrior(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	reg.Approve(deployer, k1, 1)
	reg.Approve(deployer, k2, 1)

	approved, _ := reg.ApprovedFor(1)
	if approved != k2 {
		t.Errorf("approved: got %s, want %s", approved, k2)
	}
}

func TestClearApproval_Rules(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)
	reg.Approve(deployer, k1, 1)

	// Stated owner must be the actual owner.
	err := reg.ClearApproval(deployer, k1, 1)
	if !errors.Is(err, asset.ErrNotOwner) {
		t.Errorf("wrong owner: got %v, want ErrNotOwner", err)
	}

	// The approved spender cannot clear its own approval.
	err = reg.ClearApproval(k1, deployer, 1)
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("spender clears: got %v, want ErrUnauthorized", err)
	}

	if err := reg.ClearApproval(deployer, deployer, 1); err != nil {
		t.Fatalf("owner clears: %v", err)
	}
	approved, _ := reg.ApprovedFor(1)
	if !approved.IsZero() {
		t.Errorf("approved after clear: got %s, want zero", approved)
	}
}

func TestLookup_NotFound(t *testing.T) {
	_, reg, _ := newTestSystem(t, 100)

	if _, err := reg.OwnerOf(1); !errors.Is(err, asset.ErrNotFound) {
		t.Errorf("OwnerOf: got %v, want ErrNotFound", err)
	}
	if _, err := reg.ApprovedFor(99); !errors.Is(err, asset.ErrNotFound) {
		t.Errorf("ApprovedFor: got %v, want ErrNotFound", err)
	}
	if err := reg.Approve(deployer, k1, 5); !errors.Is(err, asset.ErrNotFound) {
		t.Errorf("Approve: got %v, want ErrNotFound", err)
	}
	if reg.Exists(1) {
		t.Error("Exists(1) should be false before any mint")
	}
}

// ============================================================================
// Test: metadata through the registry
// ============================================================================

func TestSetImmutableMultihash_OwnerOnly(t *testing.T) {
	led, reg, _ := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	err := reg.SetImmutableMultihash(k1, hashBase58, 1)
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("non-owner: got %v, want ErrUnauthorized", err)
	}

	if err := reg.SetImmutableMultihash(deployer, hashBase58, 1); err != nil {
		t.Fatalf("owner: %v", err)
	}
	err = reg.SetImmutableMultihash(deployer, hashHex, 1)
	if !errors.Is(err, asset.ErrAlreadySet) {
		t.Errorf("rewrite: got %v, want ErrAlreadySet", err)
	}
}

func TestTokenURI_ComposesWithLiveBase(t *testing.T) {
	led, reg, admin := newTestSystem(t, 100)
	mint(t, led, deployer, 1)

	uri, err := reg.TokenURI(1)
	if err != nil {
		t.Fatalf("TokenURI: %v", err)
	}
	if uri != "https://burni.co/nft/" {
		t.Errorf("bare uri: got %q", uri)
	}

	reg.SetImmutableMultihash(deployer, hashBase58, 1)
	uri, _ = reg.TokenURI(1)
	if uri != "https://burni.co/nft/"+hashBase58 {
		t.Errorf("uri with hash: got %q", uri)
	}

	// The base locator is read live from the controller.
	admin.UpdateBaseTokenURI(deployer, "ipfs://")
	uri, _ = reg.TokenURI(1)
	if uri != "ipfs://"+hashBase58 {
		t.Errorf("uri after base change: got %q", uri)
	}
}

// ============================================================================
// Test: interface detection
// ============================================================================

func TestSupportsInterface(t *testing.T) {
	_, reg, _ := newTestSystem(t, 100)

	for _, id := range asset.DeclaredInterfaces() {
		if !reg.SupportsInterface(id) {
			t.Errorf("declared tag %s should be supported", id)
		}
	}
	if reg.SupportsInterface(asset.InterfaceID{0xde, 0xad, 0xbe, 0xef}) {
		t.Error("undeclared tag should not be supported")
	}
}

// ============================================================================
// Test: export / restore
// ============================================================================

func TestRegistry_ExportRestore(t *testing.T) {
	led, reg, admin := newTestSystem(t, 100)
	if _, err := led.Transfer(deployer, k1, asset.ScaleUnits(10)); err != nil {
		t.Fatalf("fund k1: %v", err)
	}
	mint(t, led, deployer, 2)
	mint(t, led, k1, 1)
	reg.Approve(deployer, k2, 1)
	reg.SetImmutableMultihash(deployer, hashBase58, 2)

	snap := reg.Export()

	restored := registry.New(registry.Config{
		Name:    "Burnin",
		Symbol:  "BURNIN",
		Address: regAddr,
	}, led, admin)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.TotalSupply() != 3 {
		t.Errorf("supply: got %d, want 3", restored.TotalSupply())
	}
	owner, _ := restored.OwnerOf(3)
	if owner != k1 {
		t.Errorf("owner of 3: got %s, want %s", owner, k1)
	}
	approved, _ := restored.ApprovedFor(1)
	if approved != k2 {
		t.Errorf("approved for 1: got %s, want %s", approved, k2)
	}
	hash, _ := restored.Multihash(2)
	if hash != hashBase58 {
		t.Errorf("hash of 2: got %q, want %q", hash, hashBase58)
	}
	for i := 0; i < 3; i++ {
		id, err := restored.TokenByIndex(i)
		if err != nil {
			t.Fatalf("TokenByIndex(%d): %v", i, err)
		}
		if id != uint64(i+1) {
			t.Errorf("global[%d]: got %d, want %d", i, id, i+1)
		}
	}

	// Ids are never reused: the restored counter continues the sequence.
	led.SetDepositSink(regAddr, restored)
	receipt, err := led.Transfer(k1, regAddr, asset.ScaleUnits(1))
	if err != nil {
		t.Fatalf("mint after restore: %v", err)
	}
	if ids := receipt.Deposit.AssetIDs; len(ids) != 1 || ids[0] != 4 {
		t.Errorf("ids after restore: got %v, want [4]", receipt.Deposit.AssetIDs)
	}
}

func TestRegistry_RestorePreservesOwnerOrder(t *testing.T) {
	led, reg, admin := newTestSystem(t, 100)
	mint(t, led, deployer, 3)

	// Swap-remove moves id 3 into the vacated slot: deployer's list is
	// now [3 2], decoupled from mint order.
	if err := reg.TransferFrom(deployer, deployer, k1, 1); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	pre := []uint64{}
	for i := 0; i < reg.BalanceOf(deployer); i++ {
		id, err := reg.TokenOfOwnerByIndex(deployer, i)
		if err != nil {
			t.Fatalf("TokenOfOwnerByIndex(%d): %v", i, err)
		}
		pre = append(pre, id)
	}
	if len(pre) != 2 || pre[0] != 3 || pre[1] != 2 {
		t.Fatalf("pre-restore order: got %v, want [3 2]", pre)
	}

	restored := registry.New(registry.Config{
		Name:    "Burnin",
		Symbol:  "BURNIN",
		Address: regAddr,
	}, led, admin)
	if err := restored.Restore(reg.Export()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	for i, want := range pre {
		id, err := restored.TokenOfOwnerByIndex(deployer, i)
		if err != nil {
			t.Fatalf("restored TokenOfOwnerByIndex(%d): %v", i, err)
		}
		if id != want {
			t.Errorf("restored deployer[%d]: got %d, want %d", i, id, want)
		}
	}
	if id, _ := restored.TokenOfOwnerByIndex(k1, 0); id != 1 {
		t.Errorf("restored k1[0]: got %d, want 1", id)
	}
	for i := 0; i < 3; i++ {
		if id, _ := restored.TokenByIndex(i); id != uint64(i+1) {
			t.Errorf("restored global[%d]: got %d, want %d", i, id, i+1)
		}
	}
}

func TestRegistry_RestoreRejectsInconsistentOwnerLists(t *testing.T) {
	_, reg, _ := newTestSystem(t, 100)

	snap := &registry.Snapshot{
		Counter:     2,
		Assets:      []registry.Asset{{ID: 1, Owner: deployer}, {ID: 2, Owner: k1}},
		GlobalIndex: []uint64{1, 2},
		Owned:       map[asset.Address][]uint64{deployer: {1, 2}},
		Multihashes: map[uint64]string{},
	}
	if err := reg.Restore(snap); err == nil {
		t.Error("owner list disagreeing with asset ownership should fail restore")
	}

	snap.Owned = map[asset.Address][]uint64{deployer: {1}}
	if err := reg.Restore(snap); err == nil {
		t.Error("owner lists not covering every asset should fail restore")
	}
}

func TestRegistry_RestoreRejectsDuplicateIDs(t *testing.T) {
	_, reg, _ := newTestSystem(t, 100)

	snap := &registry.Snapshot{
		Counter:     2,
		Assets:      []registry.Asset{{ID: 1, Owner: deployer}, {ID: 1, Owner: k1}},
		GlobalIndex: []uint64{1, 1},
		Multihashes: map[uint64]string{},
	}
	if err := reg.Restore(snap); err == nil {
		t.Error("duplicate ids should fail restore")
	}
}
