package api

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	auctionapp "github.com/fd1az/nft-auction/business/auction/app"
	oracleapp "github.com/fd1az/nft-auction/business/oracle/app"
	registrydomain "github.com/fd1az/nft-auction/business/registry/domain"
	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/events"
)

// Auctions is the read side of the auction service.
type Auctions interface {
	Get(ctx context.Context, auction common.Address) (*auctionapp.Snapshot, error)
	List(ctx context.Context, f auctionapp.ListFilter) ([]*auctionapp.Snapshot, error)
	PendingReturn(ctx context.Context, auction, account common.Address) (*big.Int, error)
	GetPriceInUSD(ctx context.Context, auction common.Address) (*big.Int, error)
	HighestBidInUSD(ctx context.Context, auction common.Address) (*big.Int, error)
}

type Registry interface {
	Get(ctx context.Context) (*registrydomain.Registry, error)
	GetAuctionsByUser(ctx context.Context, seller common.Address) ([]common.Address, error)
}

type Custody interface {
	OwnerOf(ctx context.Context, collection common.Address, id *big.Int) (common.Address, error)
	TokenURI(ctx context.Context, collection common.Address, id *big.Int) (string, error)
}

type Balances interface {
	BalanceOf(ctx context.Context, currency, account common.Address) (*big.Int, error)
}

type EventLog interface {
	List(ctx context.Context, f events.Filter) ([]events.Event, error)
}

type Feeds interface {
	Feeds() []oracleapp.FeedInfo
}

// Dependencies groups the services the API reads from.
type Dependencies struct {
	Auctions   Auctions
	Registry   Registry
	Custody    Custody
	Balances   Balances
	Events     EventLog
	Feeds      Feeds
	Currencies Currencies
}

// Currencies resolves display metadata for payment tokens.
type Currencies interface {
	Lookup(address common.Address) *asset.Asset
}
