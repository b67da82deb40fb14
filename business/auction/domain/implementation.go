package domain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// ImplementationAddress is where a logic version is deployed: the last 20
// bytes of the keccak256 of its version name.
func ImplementationAddress(version string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(version))[12:])
}

// ImplementationTable maps implementation addresses to logic versions.
type ImplementationTable struct {
	mu     sync.RWMutex
	logics map[common.Address]Logic
	order  []common.Address
}

// NewImplementationTable returns a table with LogicV1 deployed.
func NewImplementationTable() *ImplementationTable {
	t := &ImplementationTable{logics: make(map[common.Address]Logic)}
	t.Deploy(LogicV1{})
	return t
}

// Deploy registers l and returns its address. Deploying the same version
// twice returns the existing address.
func (t *ImplementationTable) Deploy(l Logic) common.Address {
	addr := ImplementationAddress(l.Version())

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.logics[addr]; !ok {
		t.logics[addr] = l
		t.order = append(t.order, addr)
	}
	return addr
}

// Resolve returns the logic deployed at addr.
func (t *ImplementationTable) Resolve(addr common.Address) (Logic, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	l, ok := t.logics[addr]
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidImplementation, "no logic deployed at "+addr.Hex())
	}
	return l, nil
}

// Has reports whether a logic is deployed at addr.
func (t *ImplementationTable) Has(addr common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.logics[addr]
	return ok
}

// Default is the first deployed logic.
func (t *ImplementationTable) Default() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.order[0]
}

// Addresses lists deployed implementations in deployment order.
func (t *ImplementationTable) Addresses() []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]common.Address(nil), t.order...)
}
