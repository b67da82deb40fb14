// Package static provides a settable price feed for development and tests.
package static

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/fd1az/nft-auction/business/oracle/app"
	"github.com/fd1az/nft-auction/business/oracle/domain"
	"github.com/fd1az/nft-auction/internal/clock"
)

// DefaultDecimals matches Chainlink USD pairs.
const DefaultDecimals = 8

var _ app.Feed = (*Feed)(nil)

// Feed answers with whatever price was last set. Its update time follows
// the clock unless pinned with SetUpdatedAt.
type Feed struct {
	description string
	decimals    uint8
	clock       clock.Clock

	mu        sync.RWMutex
	value     *big.Int
	updatedAt time.Time
}

// New creates a feed answering value with the given decimals.
func New(description string, value *big.Int, decimals uint8, clk clock.Clock) *Feed {
	return &Feed{
		description: description,
		decimals:    decimals,
		clock:       clk,
		value:       new(big.Int).Set(value),
	}
}

// SetPrice replaces the answer.
func (f *Feed) SetPrice(value *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = new(big.Int).Set(value)
}

// SetUpdatedAt pins the reported update time. The zero time unpins it.
func (f *Feed) SetUpdatedAt(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedAt = t
}

func (f *Feed) LatestPrice(context.Context) (domain.Reading, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	updated := f.updatedAt
	if updated.IsZero() {
		updated = f.clock.Now()
	}
	return domain.Reading{
		Value:     new(big.Int).Set(f.value),
		Decimals:  f.decimals,
		UpdatedAt: updated,
	}, nil
}

func (f *Feed) Description() string {
	return f.description
}
