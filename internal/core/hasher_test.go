package core_test

import (
	"crypto/sha256"
	"testing"

	"github.com/vim-labs/burni-tokens/internal/core"
)

// ============================================================================
// Test: StateHasher
// ============================================================================

func TestStateHasher_GenesisTip(t *testing.T) {
	h := core.NewStateHasher()
	want := sha256.Sum256([]byte(core.GenesisHashSeed))
	if h.GetPrevHash() != want {
		t.Error("fresh hasher must start at the genesis hash")
	}
}

func TestStateHasher_Deterministic(t *testing.T) {
	a := core.NewStateHasher()
	b := core.NewStateHasher()

	ha := a.ComputeHash(0, []byte("payload"))
	hb := b.ComputeHash(0, []byte("payload"))
	if ha != hb {
		t.Error("same inputs must produce the same hash")
	}
}

func TestStateHasher_ChainAdvances(t *testing.T) {
	h := core.NewStateHasher()

	h1 := h.ComputeHash(0, []byte("one"))
	if h.GetPrevHash() != h1 {
		t.Error("tip must advance to the last computed hash")
	}

	h2 := h.ComputeHash(1, []byte("one"))
	if h1 == h2 {
		t.Error("same digest at a new position must hash differently")
	}
}

func TestStateHasher_InputsMatter(t *testing.T) {
	base := core.NewStateHasher().ComputeHash(0, []byte("one"))

	if core.NewStateHasher().ComputeHash(1, []byte("one")) == base {
		t.Error("sequence must contribute to the hash")
	}
	if core.NewStateHasher().ComputeHash(0, []byte("two")) == base {
		t.Error("digest must contribute to the hash")
	}
}

func TestStateHasher_ResumeFromTip(t *testing.T) {
	a := core.NewStateHasher()
	a.ComputeHash(0, []byte("one"))

	b := core.NewStateHasherFrom(a.GetPrevHash())
	if a.ComputeHash(1, []byte("two")) != b.ComputeHash(1, []byte("two")) {
		t.Error("a resumed hasher must continue the chain identically")
	}
}
