package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Route represents a dual-leg trading route: buy Token2 with Token1 on Router1,
// then sell it back for Token1 on Router2.
type Route struct {
	Router1 common.Address
	Router2 common.Address
	Token1  common.Address
	Token2  common.Address
}

// Record returns the route as the four-field ordered record used by the route catalog
func (r Route) Record() [4]string {
	return [4]string{r.Router1.Hex(), r.Router2.Hex(), r.Token1.Hex(), r.Token2.Hex()}
}

// RouteFromRecord builds a route from a four-field record
func RouteFromRecord(rec [4]string) (Route, error) {
	for i, field := range rec {
		if !common.IsHexAddress(field) {
			return Route{}, fmt.Errorf("route field %d is not an address: %q", i, field)
		}
	}
	return Route{
		Router1: common.HexToAddress(rec[0]),
		Router2: common.HexToAddress(rec[1]),
		Token1:  common.HexToAddress(rec[2]),
		Token2:  common.HexToAddress(rec[3]),
	}, nil
}

func (r Route) String() string {
	return fmt.Sprintf("%s->%s [%s/%s]", r.Router1.Hex(), r.Router2.Hex(), r.Token1.Hex(), r.Token2.Hex())
}

// AssetBalance is a point-in-time copy of one tracked asset
type AssetBalance struct {
	Symbol  string
	Address common.Address
	Current *uint256.Int
	Start   *uint256.Int
}

// TradeDecision is the outcome of one engine iteration's threshold check
type TradeDecision struct {
	TradeSize       *uint256.Int
	ExpectedReturn  *uint256.Int
	ProfitThreshold *uint256.Int
	IsProfitable    bool
}

// TradeReceipt reports a mined dual trade
type TradeReceipt struct {
	TxHash      common.Hash
	BlockNumber *big.Int
	GasUsed     uint64
	// RealizedReturn may differ from the estimate; the chain moved between the two.
	RealizedReturn *big.Int
}
