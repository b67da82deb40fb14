// Package di contains dependency injection tokens for the auction context.
package di

import (
	"github.com/fd1az/nft-auction/business/auction/app"
	"github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/internal/di"
)

// Public service tokens - exposed to other modules
var (
	AuctionService  = di.NewToken[*app.AuctionService]("auction.AuctionService")
	Implementations = di.NewToken[*domain.ImplementationTable]("auction.Implementations")
)

// Private dependency tokens - internal to auction module
var (
	Repository = di.NewToken[app.Repository]("auction:repository")
)

func GetAuctionService(c di.ServiceRegistry) *app.AuctionService {
	return di.GetToken(c, AuctionService)
}

func GetImplementations(c di.ServiceRegistry) *domain.ImplementationTable {
	return di.GetToken(c, Implementations)
}

func GetRepository(c di.ServiceRegistry) app.Repository {
	return di.GetToken(c, Repository)
}
