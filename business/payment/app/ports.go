// Package app contains application services and port definitions for the payment context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Repository persists balances and allowances. Missing rows read as zero.
type Repository interface {
	Balance(ctx context.Context, currency, account common.Address) (*big.Int, error)
	SetBalance(ctx context.Context, currency, account common.Address, amount *big.Int) error
	Allowance(ctx context.Context, currency, owner, spender common.Address) (*big.Int, error)
	SetAllowance(ctx context.Context, currency, owner, spender common.Address, amount *big.Int) error
}

// Transactor runs fn as one ledger transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
