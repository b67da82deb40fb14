package app

import (
	"context"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/oracle/domain"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/logger"
)

// FeedInfo describes a registered feed.
type FeedInfo struct {
	Address     common.Address
	Description string
	Native      bool
}

// OracleService resolves feed addresses to sources and normalises their answers.
type OracleService struct {
	native common.Address
	maxAge time.Duration
	clock  clock.Clock
	log    logger.LoggerInterface

	mu    sync.RWMutex
	feeds map[common.Address]Feed
}

// NewOracleService creates a service whose zero-address feed resolves to native.
// A zero maxAge disables the staleness check.
func NewOracleService(native common.Address, maxAge time.Duration, clk clock.Clock, log logger.LoggerInterface) *OracleService {
	return &OracleService{
		native: native,
		maxAge: maxAge,
		clock:  clk,
		log:    log,
		feeds:  make(map[common.Address]Feed),
	}
}

// Register makes feed reachable under addr.
func (s *OracleService) Register(addr common.Address, feed Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[addr] = feed
}

// Native returns the feed used for the zero-address sentinel.
func (s *OracleService) Native() common.Address {
	return s.native
}

// Resolve maps the zero-address sentinel to the native feed.
func (s *OracleService) Resolve(feed common.Address) common.Address {
	if feed == (common.Address{}) {
		return s.native
	}
	return feed
}

// LatestPrice returns a validated reading of feed.
func (s *OracleService) LatestPrice(ctx context.Context, feed common.Address) (domain.Reading, error) {
	addr := s.Resolve(feed)

	s.mu.RLock()
	source, ok := s.feeds[addr]
	s.mu.RUnlock()
	if !ok {
		return domain.Reading{}, domain.ErrUnknownFeed(addr)
	}

	reading, err := source.LatestPrice(ctx)
	if err != nil {
		s.log.Warn(ctx, "price feed read failed", "feed", addr.Hex(), "error", err)
		return domain.Reading{}, err
	}

	if err := reading.Validate(addr, s.clock.Now(), s.maxAge); err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}

// PriceInUSD returns the latest answer of feed in 18-decimal USD.
func (s *OracleService) PriceInUSD(ctx context.Context, feed common.Address) (*big.Int, error) {
	reading, err := s.LatestPrice(ctx, feed)
	if err != nil {
		return nil, err
	}
	return reading.USD(), nil
}

// Feeds lists the registered feeds ordered by address.
func (s *OracleService) Feeds() []FeedInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FeedInfo, 0, len(s.feeds))
	for addr, f := range s.feeds {
		out = append(out, FeedInfo{Address: addr, Description: f.Description(), Native: addr == s.native})
	}
	slices.SortFunc(out, func(a, b FeedInfo) int { return a.Address.Cmp(b.Address) })
	return out
}
