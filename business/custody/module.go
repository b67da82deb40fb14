// Package custody implements the non-fungible asset custody context.
package custody

import (
	"context"

	"github.com/fd1az/nft-auction/business/custody/app"
	custodyDI "github.com/fd1az/nft-auction/business/custody/di"
	"github.com/fd1az/nft-auction/business/custody/infra/gormrepo"
	"github.com/fd1az/nft-auction/internal/di"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/monolith"
	"github.com/fd1az/nft-auction/internal/store"
)

// Module implements the custody bounded context.
type Module struct{}

// RegisterServices registers all custody services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, custodyDI.Repository, func(sr di.ServiceRegistry) app.Repository {
		db := sr.Get("db").(*store.DB)

		repo, err := gormrepo.New(db)
		if err != nil {
			panic("failed to create custody repository: " + err.Error())
		}
		return repo
	})

	di.RegisterToken(c, custodyDI.CustodyService, func(sr di.ServiceRegistry) *app.CustodyService {
		db := sr.Get("db").(*store.DB)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewCustodyService(custodyDI.GetRepository(sr), db, log)
	})

	return nil
}

// Startup resolves the custody service so its tables exist before traffic.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	custodyDI.GetCustodyService(mono.Services())
	mono.Logger().Info(ctx, "custody module started")
	return nil
}
