package asset

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownDecimals is assumed for tokens nobody registered.
const UnknownDecimals = 18

// Registry is a thread-safe set of known currencies keyed by address.
type Registry struct {
	mu        sync.RWMutex
	byAddress map[common.Address]*Asset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byAddress: make(map[common.Address]*Asset)}
}

// Register adds a. It panics when the address is already taken.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[a.address]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.address.Hex()))
	}
	r.byAddress[a.address] = a
}

// Get returns the currency at address.
func (r *Registry) Get(address common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byAddress[address]
	return a, ok
}

// Lookup returns the currency at address or a generic 18-decimal token
// named after the address.
func (r *Registry) Lookup(address common.Address) *Asset {
	if a, ok := r.Get(address); ok {
		return a
	}
	return NewAsset(address, address.Hex()[:8], "", UnknownDecimals)
}

// Decimals of the currency at address.
func (r *Registry) Decimals(address common.Address) uint8 {
	return r.Lookup(address).Decimals()
}

// All returns the registered currencies ordered by address.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Asset, 0, len(r.byAddress))
	for _, a := range r.byAddress {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *Asset) int { return a.address.Cmp(b.address) })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
