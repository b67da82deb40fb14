// Package di contains dependency injection tokens for the registry context.
package di

import (
	"github.com/fd1az/nft-auction/business/registry/app"
	"github.com/fd1az/nft-auction/internal/di"
)

// Public service tokens - exposed to other modules
var (
	RegistryService = di.NewToken[*app.RegistryService]("registry.RegistryService")
)

// Private dependency tokens - internal to registry module
var (
	Repository = di.NewToken[app.Repository]("registry:repository")
)

func GetRegistryService(c di.ServiceRegistry) *app.RegistryService {
	return di.GetToken(c, RegistryService)
}

func GetRepository(c di.ServiceRegistry) app.Repository {
	return di.GetToken(c, Repository)
}
