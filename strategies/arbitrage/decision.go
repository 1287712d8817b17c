package arbitrage

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/types"
	bpsmath "github.com/michaelpento.lv/arbbot/utils/math"
)

// Decide compares an expected return with the minimum-profit threshold
// tradeSize * (10000 + minBasisPoints) / 10000. Only a strictly greater return
// is profitable, and a zero trade size never is.
func Decide(tradeSize, expectedReturn *uint256.Int, minBasisPoints uint64) (types.TradeDecision, error) {
	threshold, err := bpsmath.ApplyBasisPoints(tradeSize, minBasisPoints)
	if err != nil {
		return types.TradeDecision{TradeSize: tradeSize, ExpectedReturn: expectedReturn},
			fmt.Errorf("failed to compute profit threshold: %w", err)
	}

	return types.TradeDecision{
		TradeSize:       tradeSize,
		ExpectedReturn:  expectedReturn,
		ProfitThreshold: threshold,
		IsProfitable:    !tradeSize.IsZero() && expectedReturn.Gt(threshold),
	}, nil
}
