// Package di contains dependency injection tokens for the payment context.
package di

import (
	"github.com/fd1az/nft-auction/business/payment/app"
	"github.com/fd1az/nft-auction/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PaymentService = di.NewToken[*app.PaymentService]("payment.PaymentService")
)

// Private dependency tokens - internal to payment module
var (
	Repository = di.NewToken[app.Repository]("payment:repository")
)

func GetPaymentService(c di.ServiceRegistry) *app.PaymentService {
	return di.GetToken(c, PaymentService)
}

func GetRepository(c di.ServiceRegistry) app.Repository {
	return di.GetToken(c, Repository)
}
