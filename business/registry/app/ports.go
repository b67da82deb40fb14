// Package app contains application services and port definitions for the registry context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	auctionapp "github.com/fd1az/nft-auction/business/auction/app"
	auctiondomain "github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/business/registry/domain"
)

// Repository persists the registry and its seller index.
type Repository interface {
	Get(ctx context.Context) (*domain.Registry, error)
	Create(ctx context.Context, r *domain.Registry) error
	Save(ctx context.Context, r *domain.Registry) error
	AppendListing(ctx context.Context, seller, auction common.Address) error
	Listings(ctx context.Context, seller common.Address) ([]common.Address, error)
}

// Auctions initializes new instances.
type Auctions interface {
	Initialize(ctx context.Context, req auctionapp.InitRequest) (*auctiondomain.Auction, error)
}

// Implementations tells which logic versions are deployed.
type Implementations interface {
	Has(addr common.Address) bool
	Default() common.Address
}

// Custodian escrows assets into new instances.
type Custodian interface {
	TransferFrom(ctx context.Context, collection, operator, from, to common.Address, id *big.Int) error
}

// EventEmitter records events within the current transaction.
type EventEmitter interface {
	Emit(ctx context.Context, name string, emitter common.Address, payload any) error
}

// Transactor runs fn as one ledger transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
