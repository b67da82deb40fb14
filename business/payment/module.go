// Package payment implements the funds ledger context.
package payment

import (
	"context"

	"github.com/fd1az/nft-auction/business/payment/app"
	paymentDI "github.com/fd1az/nft-auction/business/payment/di"
	"github.com/fd1az/nft-auction/business/payment/infra/gormrepo"
	"github.com/fd1az/nft-auction/internal/di"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/monolith"
	"github.com/fd1az/nft-auction/internal/store"
)

// Module implements the payment bounded context.
type Module struct{}

// RegisterServices registers all payment services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, paymentDI.Repository, func(sr di.ServiceRegistry) app.Repository {
		repo, err := gormrepo.New(sr.Get("db").(*store.DB))
		if err != nil {
			panic("failed to create payment repository: " + err.Error())
		}
		return repo
	})

	di.RegisterToken(c, paymentDI.PaymentService, func(sr di.ServiceRegistry) *app.PaymentService {
		db := sr.Get("db").(*store.DB)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewPaymentService(paymentDI.GetRepository(sr), db, log)
	})

	return nil
}

// Startup initializes the payment module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	paymentDI.GetPaymentService(mono.Services())
	mono.Logger().Info(ctx, "payment module started")
	return nil
}
