package arbitrage

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		size       uint64
		expected   uint64
		minBps     uint64
		threshold  uint64
		profitable bool
	}{
		{name: "equal to threshold", size: 1_000_000, expected: 1_005_000, minBps: 50, threshold: 1_005_000, profitable: false},
		{name: "one above threshold", size: 1_000_000, expected: 1_005_001, minBps: 50, threshold: 1_005_000, profitable: true},
		{name: "loss", size: 1_000_000, expected: 990_000, minBps: 50, threshold: 1_005_000, profitable: false},
		{name: "zero bps needs any gain", size: 1_000, expected: 1_001, minBps: 0, threshold: 1_000, profitable: true},
		{name: "zero size", size: 0, expected: 5, minBps: 50, threshold: 0, profitable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(uint256.NewInt(tt.size), uint256.NewInt(tt.expected), tt.minBps)
			require.NoError(t, err)
			assert.Equal(t, uint256.NewInt(tt.threshold), d.ProfitThreshold)
			assert.Equal(t, tt.profitable, d.IsProfitable)
		})
	}
}

func TestDecideThresholdOverflow(t *testing.T) {
	size := new(uint256.Int).SetAllOne()
	_, err := Decide(size, size, 50)
	assert.Error(t, err)
}
