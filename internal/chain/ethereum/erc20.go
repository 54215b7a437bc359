package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// erc20ABI covers the two methods collection needs.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20 = mustParseABI(erc20ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func packBalanceOf(owner string) ([]byte, error) {
	return erc20.Pack("balanceOf", common.HexToAddress(owner))
}

func packTransfer(to string, amount *big.Int) ([]byte, error) {
	return erc20.Pack("transfer", common.HexToAddress(to), amount)
}

func unpackBalance(data []byte) (*big.Int, error) {
	// some nodes answer "0x" for non-contract addresses
	if len(data) == 0 {
		return new(big.Int), nil
	}
	out, err := erc20.Unpack("balanceOf", data)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unpack balanceOf: %d values", len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack balanceOf: unexpected %T", out[0])
	}
	return v, nil
}
