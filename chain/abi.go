package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	MethodEstimateDualDexTrade = "estimateDualDexTrade"
	MethodDualDexTrade         = "dualDexTrade"
	MethodBalanceOf            = "balanceOf"
)

// ArbContractABI covers the two entry points of the dual-DEX arbitrage contract
const ArbContractABI = `[
	{"inputs":[{"internalType":"address","name":"_router1","type":"address"},{"internalType":"address","name":"_router2","type":"address"},{"internalType":"address","name":"_token1","type":"address"},{"internalType":"address","name":"_token2","type":"address"},{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"estimateDualDexTrade","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"_router1","type":"address"},{"internalType":"address","name":"_router2","type":"address"},{"internalType":"address","name":"_token1","type":"address"},{"internalType":"address","name":"_token2","type":"address"},{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"dualDexTrade","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// ERC20ABI with just the methods we need
const ERC20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	arbABI   = mustParse(ArbContractABI)
	erc20ABI = mustParse(ERC20ABI)
)

// ArbABI returns the parsed arbitrage contract ABI. It is shared; do not modify it.
func ArbABI() *abi.ABI { return &arbABI }

// ERC20 returns the parsed ERC-20 ABI. It is shared; do not modify it.
func ERC20() *abi.ABI { return &erc20ABI }

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
