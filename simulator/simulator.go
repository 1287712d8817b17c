package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/types"
)

var (
	// ErrEstimation is returned when the simulated trade reverts or the call fails
	ErrEstimation = errors.New("estimation failed")
	// ErrReverted additionally marks estimates the contract rejected, as opposed
	// to transport failures
	ErrReverted = errors.New("simulated trade reverted")
)

// Simulator estimates dual trade returns with read-only calls to the arbitrage contract
type Simulator struct {
	caller   bind.ContractCaller
	contract common.Address
	from     common.Address
}

// NewSimulator creates a new trade simulator. from is the account the call is
// simulated as; the contract may restrict estimates to its owner.
func NewSimulator(caller bind.ContractCaller, contract, from common.Address) *Simulator {
	return &Simulator{
		caller:   caller,
		contract: contract,
		from:     from,
	}
}

// Estimate returns the amount of route.Token1 the contract expects back after
// trading tradeSize through both legs. Nothing is committed.
func (s *Simulator) Estimate(ctx context.Context, route types.Route, tradeSize *uint256.Int) (*uint256.Int, error) {
	if tradeSize == nil {
		tradeSize = new(uint256.Int)
	}

	callData, err := chain.ArbABI().Pack(
		chain.MethodEstimateDualDexTrade,
		route.Router1,
		route.Router2,
		route.Token1,
		route.Token2,
		tradeSize.ToBig(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to pack call: %v", ErrEstimation, err)
	}

	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.contract,
		Data: callData,
	}, nil)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %w: %s: %v", ErrEstimation, ErrReverted, route, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrEstimation, route, err)
	}

	amount, err := chain.UnpackUint256(chain.ArbABI().Unpack, chain.MethodEstimateDualDexTrade, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimation, err)
	}
	return amount, nil
}

// isRevert reports whether a call error came from the EVM rather than the transport
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
