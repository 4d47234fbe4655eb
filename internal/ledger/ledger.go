// Package ledger talks to the chain the faucet pays out on.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrTxReverted     = errors.New("transaction reverted")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// Client is what the faucet needs from the chain. Transfer may be slow and may fail.
type Client interface {
	Account() string
	// Balance returns the faucet balance in ether as a decimal string.
	Balance(ctx context.Context) (string, error)
	BlockNumber(ctx context.Context) (uint64, error)
	// Transfer sends amount wei to the destination and returns the tx hash once mined.
	Transfer(ctx context.Context, to string, amount *big.Int) (string, error)
	ValidAddress(addr string) bool
}

// ValidAddress accepts 20-byte hex addresses with or without 0x.
// Mixed-case input must carry a correct EIP-55 checksum.
func ValidAddress(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	hex := addr
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return common.HexToAddress(addr).Hex()[2:] == hex
}

// ParseEther converts a decimal ether amount ("0.5") into wei.
func ParseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt64(params.Ether))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidAmount, s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	sign := ""
	v := new(big.Int).Set(wei)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	q, r := new(big.Int).QuoRem(v, big.NewInt(params.Ether), new(big.Int))
	if r.Sign() == 0 {
		return sign + q.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%018s", r.String()), "0")
	return sign + q.String() + "." + frac
}
