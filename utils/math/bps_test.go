package math

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasisPoints(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"TestDeltaGain", testDeltaGain},
		{"TestDeltaLoss", testDeltaLoss},
		{"TestDeltaTruncatesTowardZero", testDeltaTruncatesTowardZero},
		{"TestDeltaZeroStart", testDeltaZeroStart},
		{"TestDeltaHugeValues", testDeltaHugeValues},
		{"TestApplyThreshold", testApplyThreshold},
		{"TestApplyZeroAmount", testApplyZeroAmount},
		{"TestApplyRoundsDown", testApplyRoundsDown},
		{"TestApplyOverflow", testApplyOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testDeltaGain(t *testing.T) {
	bps, err := BasisPointDelta(uint256.NewInt(1_010_000), uint256.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(100), bps.Int64())
}

func testDeltaLoss(t *testing.T) {
	bps, err := BasisPointDelta(uint256.NewInt(995_000), uint256.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(-50), bps.Int64())
}

func testDeltaTruncatesTowardZero(t *testing.T) {
	// -1 * 10000 / 3 = -3333.33 -> -3333, not -3334
	bps, err := BasisPointDelta(uint256.NewInt(2), uint256.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(-3333), bps.Int64())

	bps, err = BasisPointDelta(uint256.NewInt(4), uint256.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3333), bps.Int64())
}

func testDeltaZeroStart(t *testing.T) {
	_, err := BasisPointDelta(uint256.NewInt(10), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = BasisPointDelta(uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func testDeltaHugeValues(t *testing.T) {
	start := new(uint256.Int).Lsh(uint256.NewInt(1), 250)
	current := new(uint256.Int).Lsh(uint256.NewInt(1), 251)

	bps, err := BasisPointDelta(current, start)
	require.NoError(t, err)
	assert.Equal(t, 0, bps.Cmp(big.NewInt(10000)))
}

func testApplyThreshold(t *testing.T) {
	threshold, err := ApplyBasisPoints(uint256.NewInt(1_000_000), 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_005_000), threshold.Uint64())

	threshold, err = ApplyBasisPoints(uint256.NewInt(1_000_000), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), threshold.Uint64())
}

func testApplyZeroAmount(t *testing.T) {
	threshold, err := ApplyBasisPoints(uint256.NewInt(0), 50)
	require.NoError(t, err)
	assert.True(t, threshold.IsZero())

	threshold, err = ApplyBasisPoints(nil, 50)
	require.NoError(t, err)
	assert.True(t, threshold.IsZero())
}

func testApplyRoundsDown(t *testing.T) {
	// 999 * 10050 / 10000 = 1003.995
	threshold, err := ApplyBasisPoints(uint256.NewInt(999), 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1003), threshold.Uint64())
}

func testApplyOverflow(t *testing.T) {
	ceiling := new(uint256.Int).SetAllOne()
	_, err := ApplyBasisPoints(ceiling, 10000)
	assert.ErrorIs(t, err, ErrOverflow)
}
