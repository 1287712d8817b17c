package math

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// BasisPointsDenominator is 100% expressed in basis points
const BasisPointsDenominator = 10000

var (
	// ErrDivisionByZero is returned when a basis-point delta is taken against a zero base
	ErrDivisionByZero = errors.New("division by zero: base amount is zero")
	// ErrOverflow is returned when a scaled amount does not fit in 256 bits
	ErrOverflow = errors.New("uint256 overflow")
)

var bpsDenominator = uint256.NewInt(BasisPointsDenominator)

// BasisPointDelta computes (current - start) * 10000 / start, truncated toward zero.
// The result is signed since current may be below start.
func BasisPointDelta(current, start *uint256.Int) (*big.Int, error) {
	if start == nil || start.IsZero() {
		return nil, ErrDivisionByZero
	}
	if current == nil {
		current = new(uint256.Int)
	}

	diff := new(big.Int).Sub(current.ToBig(), start.ToBig())
	diff.Mul(diff, big.NewInt(BasisPointsDenominator))

	// Quo truncates toward zero, Div would floor negatives
	return diff.Quo(diff, start.ToBig()), nil
}

// ApplyBasisPoints returns amount * (10000 + bps) / 10000, rounded down
func ApplyBasisPoints(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return new(uint256.Int), nil
	}

	multiplier, overflow := new(uint256.Int).AddOverflow(bpsDenominator, uint256.NewInt(bps))
	if overflow {
		return nil, ErrOverflow
	}

	z, overflow := new(uint256.Int).MulDivOverflow(amount, multiplier, bpsDenominator)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}
