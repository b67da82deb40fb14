// Package app contains application services and port definitions for the custody context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/custody/domain"
)

// Repository persists collections, tokens and operator approvals.
type Repository interface {
	CreateCollection(ctx context.Context, c *domain.Collection) error
	GetCollection(ctx context.Context, addr common.Address) (*domain.Collection, error)
	CountCollections(ctx context.Context, owner common.Address) (int64, error)

	// GetToken returns domain.ErrTokenNotFound for unminted ids.
	GetToken(ctx context.Context, collection common.Address, id *big.Int) (*domain.Token, error)
	CreateToken(ctx context.Context, t *domain.Token) error
	SaveToken(ctx context.Context, t *domain.Token) error
	TokensOf(ctx context.Context, collection, owner common.Address) ([]*domain.Token, error)

	IsApprovedForAll(ctx context.Context, collection, owner, operator common.Address) (bool, error)
	SetApprovalForAll(ctx context.Context, collection, owner, operator common.Address, approved bool) error
}

// Transactor runs fn as one ledger transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
