// Package asset describes payment currencies and fixed-point amounts in them.
// Amounts are big.Int in the smallest unit; decimal.Decimal only appears at
// the display and parsing boundary.
package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is the metadata of a payment currency. Its identity is the token
// address; the zero address is the chain's native coin.
type Asset struct {
	address  common.Address
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates an Asset.
func NewAsset(address common.Address, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 36 {
		panic("asset: suspicious decimals (>36)")
	}
	return &Asset{address: address, symbol: symbol, name: name, decimals: decimals}
}

// Address is the token contract, zero for the native coin.
func (a *Asset) Address() common.Address {
	return a.address
}

func (a *Asset) Symbol() string {
	return a.symbol
}

// Name falls back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// IsNative reports whether this is the chain's native coin.
func (a *Asset) IsNative() bool {
	return a.address == (common.Address{})
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares assets by address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.address == other.address
}
