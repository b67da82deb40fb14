package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDHardhat  = 31337
)

// USD is the unit of oracle prices. It is not a payment currency and has
// no address of its own.
var USD = NewAsset(common.Address{}, "USD", "US Dollar", 18)

// NewNative creates the native coin of a chain.
func NewNative(symbol, name string, decimals uint8) *Asset {
	return NewAsset(common.Address{}, symbol, name, decimals)
}

// ETH is the native coin of Ethereum networks.
var ETH = NewNative("ETH", "Ether", 18)

// DefaultRegistry returns a registry holding native.
func DefaultRegistry(native *Asset) *Registry {
	if native == nil {
		native = ETH
	}
	r := NewRegistry()
	r.Register(native)
	return r
}
