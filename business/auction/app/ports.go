// Package app contains application services and port definitions for the auction context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/auction/domain"
)

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Seller *common.Address
	State  domain.State
	Limit  int
	Offset int
}

// Repository persists auction instances and their pending returns.
type Repository interface {
	Create(ctx context.Context, a *domain.Auction) error
	Get(ctx context.Context, addr common.Address) (*domain.Auction, error)
	Exists(ctx context.Context, addr common.Address) (bool, error)
	Save(ctx context.Context, a *domain.Auction) error
	List(ctx context.Context, f ListFilter) ([]*domain.Auction, error)
	PendingReturn(ctx context.Context, auction, account common.Address) (*big.Int, error)
	SetPendingReturn(ctx context.Context, auction, account common.Address, amount *big.Int) error
}

// Custodian moves the auctioned asset.
type Custodian interface {
	OwnerOf(ctx context.Context, collection common.Address, id *big.Int) (common.Address, error)
	TransferFrom(ctx context.Context, collection, operator, from, to common.Address, id *big.Int) error
}

// Treasury moves bid funds.
type Treasury interface {
	Transfer(ctx context.Context, currency, from, to common.Address, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, currency, from, to common.Address, amount *big.Int) error
}

// PriceOracle prices a feed in 18-decimal USD. The zero feed is the native one.
type PriceOracle interface {
	PriceInUSD(ctx context.Context, feed common.Address) (*big.Int, error)
}

// Currencies knows the decimals of payment currencies.
type Currencies interface {
	Decimals(currency common.Address) uint8
}

// EventEmitter records events within the current transaction.
type EventEmitter interface {
	Emit(ctx context.Context, name string, emitter common.Address, payload any) error
}

// Transactor runs fn as one ledger transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
