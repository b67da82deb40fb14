// Package registry implements the auction factory bounded context.
package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	auctionDI "github.com/fd1az/nft-auction/business/auction/di"
	custodyDI "github.com/fd1az/nft-auction/business/custody/di"
	"github.com/fd1az/nft-auction/business/registry/app"
	registryDI "github.com/fd1az/nft-auction/business/registry/di"
	"github.com/fd1az/nft-auction/business/registry/infra/gormrepo"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/di"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/monolith"
	"github.com/fd1az/nft-auction/internal/store"
)

// Module implements the registry bounded context. It depends on the
// custody and auction modules being registered.
type Module struct{}

// RegisterServices registers all registry services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, registryDI.Repository, func(sr di.ServiceRegistry) app.Repository {
		db := sr.Get("db").(*store.DB)

		repo, err := gormrepo.New(db)
		if err != nil {
			panic("failed to create registry repository: " + err.Error())
		}
		return repo
	})

	di.RegisterToken(c, registryDI.RegistryService, func(sr di.ServiceRegistry) *app.RegistryService {
		return app.NewRegistryService(app.Dependencies{
			Repo:            registryDI.GetRepository(sr),
			Tx:              sr.Get("db").(*store.DB),
			Auctions:        auctionDI.GetAuctionService(sr),
			Implementations: auctionDI.GetImplementations(sr),
			Custodian:       custodyDI.GetCustodyService(sr),
			Events:          sr.Get("events").(*events.Log),
			Clock:           sr.Get("clock").(clock.Clock),
			Log:             sr.Get("logger").(logger.LoggerInterface),
		})
	})

	return nil
}

// Startup deploys the registry and the demo collection when bootstrap is on.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := registryDI.GetRegistryService(mono.Services())
	cfg := mono.Config().Registry
	owner := cfg.OwnerHex()

	if cfg.Bootstrap {
		_, err := svc.Deploy(ctx, owner, common.Address{}, mono.Config().Oracle.NativeFeedHex())
		if err != nil && !apperror.HasCode(err, apperror.CodeRegistryDeployed) {
			return err
		}

		custody := custodyDI.GetCustodyService(mono.Services())
		_, err = custody.Collection(ctx, crypto.CreateAddress(owner, 0))
		if apperror.HasCode(err, apperror.CodeCollectionUnset) {
			_, err = custody.DeployCollection(ctx, owner, cfg.Collection.Name, cfg.Collection.Symbol, cfg.Collection.BaseURI)
		}
		if err != nil {
			return err
		}
	}

	reg, err := svc.Get(ctx)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeRegistryNotDeployed) {
			mono.Logger().Warn(ctx, "registry module started without a deployed registry")
			return nil
		}
		return err
	}

	mono.Logger().Info(ctx, "registry module started",
		"address", reg.Address.Hex(),
		"owner", reg.Owner.Hex(),
		"implementation", reg.Implementation.Hex(),
		"auctions_created", reg.Nonce,
	)
	return nil
}
