package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenBalances reads ERC-20 balances held by a fixed account (the arbitrage contract)
type TokenBalances struct {
	caller bind.ContractCaller
	holder common.Address
}

func NewTokenBalances(caller bind.ContractCaller, holder common.Address) *TokenBalances {
	return &TokenBalances{caller: caller, holder: holder}
}

// Holder returns the account whose balances are read
func (b *TokenBalances) Holder() common.Address {
	return b.holder
}

// BalanceOf returns token.balanceOf(holder) at the latest block
func (b *TokenBalances) BalanceOf(ctx context.Context, token common.Address) (*uint256.Int, error) {
	data, err := erc20ABI.Pack(MethodBalanceOf, b.holder)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}

	return UnpackUint256(erc20ABI.Unpack, MethodBalanceOf, out)
}

// UnpackUint256 decodes a single uint256 return value
func UnpackUint256(unpack func(string, []byte) ([]interface{}, error), method string, out []byte) (*uint256.Int, error) {
	values, err := unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(values))
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T", method, values[0])
	}
	v, overflow := uint256.FromBig(raw)
	if overflow || raw.Sign() < 0 {
		return nil, fmt.Errorf("%s returned out of range value %s", method, raw)
	}
	return v, nil
}
