// Package di contains dependency injection tokens for the custody context.
package di

import (
	"github.com/fd1az/nft-auction/business/custody/app"
	"github.com/fd1az/nft-auction/internal/di"
)

// Public service tokens - exposed to other modules
var (
	CustodyService = di.NewToken[*app.CustodyService]("custody.CustodyService")
)

// Private dependency tokens - internal to custody module
var (
	Repository = di.NewToken[app.Repository]("custody:repository")
)

func GetCustodyService(c di.ServiceRegistry) *app.CustodyService {
	return di.GetToken(c, CustodyService)
}

func GetRepository(c di.ServiceRegistry) app.Repository {
	return di.GetToken(c, Repository)
}
