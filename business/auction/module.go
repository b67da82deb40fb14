// Package auction implements the auction instance bounded context.
package auction

import (
	"context"

	"github.com/fd1az/nft-auction/business/auction/app"
	auctionDI "github.com/fd1az/nft-auction/business/auction/di"
	"github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/business/auction/infra/gormrepo"
	custodyDI "github.com/fd1az/nft-auction/business/custody/di"
	oracleDI "github.com/fd1az/nft-auction/business/oracle/di"
	paymentDI "github.com/fd1az/nft-auction/business/payment/di"
	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/di"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/monolith"
	"github.com/fd1az/nft-auction/internal/store"
)

// Module implements the auction bounded context. It depends on the
// custody, payment and oracle modules being registered.
type Module struct{}

// RegisterServices registers all auction services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, auctionDI.Implementations, func(di.ServiceRegistry) *domain.ImplementationTable {
		return domain.NewImplementationTable()
	})

	di.RegisterToken(c, auctionDI.Repository, func(sr di.ServiceRegistry) app.Repository {
		db := sr.Get("db").(*store.DB)

		repo, err := gormrepo.New(db)
		if err != nil {
			panic("failed to create auction repository: " + err.Error())
		}
		return repo
	})

	di.RegisterToken(c, auctionDI.AuctionService, func(sr di.ServiceRegistry) *app.AuctionService {
		return app.NewAuctionService(app.Dependencies{
			Repo:            auctionDI.GetRepository(sr),
			Tx:              sr.Get("db").(*store.DB),
			Custodian:       custodyDI.GetCustodyService(sr),
			Treasury:        paymentDI.GetPaymentService(sr),
			Oracle:          oracleDI.GetOracleService(sr),
			Currencies:      sr.Get("assetRegistry").(*asset.Registry),
			Events:          sr.Get("events").(*events.Log),
			Implementations: auctionDI.GetImplementations(sr),
			Clock:           sr.Get("clock").(clock.Clock),
			Log:             sr.Get("logger").(logger.LoggerInterface),
		})
	})

	return nil
}

// Startup resolves the auction service and reports open auctions.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := auctionDI.GetAuctionService(mono.Services())

	active, err := svc.List(ctx, app.ListFilter{State: domain.StateActive})
	if err != nil {
		return err
	}

	mono.Logger().Info(ctx, "auction module started",
		"active_auctions", len(active),
		"implementations", len(svc.Implementations().Addresses()),
	)
	return nil
}
