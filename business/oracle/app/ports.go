// Package app contains the oracle service and its feed port.
package app

import (
	"context"

	"github.com/fd1az/nft-auction/business/oracle/domain"
)

// Feed is an external price source exposing a single latest-price read.
type Feed interface {
	LatestPrice(ctx context.Context) (domain.Reading, error)
	// Description names the pair, e.g. "ETH / USD".
	Description() string
}
