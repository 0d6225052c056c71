package asset

import (
	"fmt"
	"math/big"
)

// Amounts are minimal base-asset units with 18 implied fractional decimal
// digits. A 1,000,000 whole-unit supply is 10^24 minimal units, past the
// int64 range, so every amount in the engine is a big.Int.

// UnitDecimals is the number of implied fractional digits of the base asset.
const UnitDecimals = 18

// FeeDivisor sets the mint fee rate: fee = unit / FeeDivisor (2.5% nominal).
const FeeDivisor = 40

var (
	unit     = new(big.Int).Exp(big.NewInt(10), big.NewInt(UnitDecimals), nil)
	unitFee  = new(big.Int).Div(unit, big.NewInt(FeeDivisor))
	unitBurn = new(big.Int).Sub(unit, unitFee)
)

// Unit returns one whole base-asset unit (10^18 minimal units) as a fresh
// big.Int the caller may mutate.
func Unit() *big.Int {
	return new(big.Int).Set(unit)
}

// MintFee returns the fee charged per minted asset: unit / 40.
func MintFee() *big.Int {
	return new(big.Int).Set(unitFee)
}

// MintValuation returns the amount burned from supply per minted asset:
// unit - unit/40.
func MintValuation() *big.Int {
	return new(big.Int).Set(unitBurn)
}

// WholeUnits returns amount / unit and whether amount is a positive exact
// multiple of one whole unit. Minting is defined only for exact multiples.
func WholeUnits(amount *big.Int) (uint64, bool) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, false
	}

	q, r := new(big.Int).QuoRem(amount, unit, new(big.Int))
	if r.Sign() != 0 || !q.IsUint64() {
		return 0, false
	}

	return q.Uint64(), true
}

// ScaleUnits converts a whole-unit count to minimal units.
func ScaleUnits(whole uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(whole), unit)
}

// ParseAmount parses a non-negative decimal string of minimal units.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q: not a base-10 integer", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q: negative", s)
	}
	return v, nil
}
