package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// Logic is one version of the bidding and finalisation rules. Instances
// dispatch to the Logic their implementation address resolves to.
//
// Methods only check and mutate the record. Moving funds and the asset is
// left to the caller, after the record has been updated.
type Logic interface {
	Version() string
	Initialize(a *Auction, seller common.Address, p InitParams, now time.Time) error
	// PlaceBid records bid and returns the displaced highest bid, which is
	// zero when there was none.
	PlaceBid(a *Auction, bid Bid, value *big.Int, now time.Time) (Bid, error)
	Withdraw(a *Auction, account common.Address, pending *big.Int) error
	End(a *Auction, caller common.Address, now time.Time) (Settlement, error)
}

// LogicV1Version names the first logic version.
const LogicV1Version = "NFTAuction.v1"

// LogicV1 is a sealed single-item auction: strictly increasing bids,
// pull refunds and seller-only finalisation after the deadline.
type LogicV1 struct{}

var _ Logic = LogicV1{}

func (LogicV1) Version() string { return LogicV1Version }

func (LogicV1) Initialize(a *Auction, seller common.Address, p InitParams, now time.Time) error {
	if p.Duration <= 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "duration must be positive")
	}
	if p.NFT == (common.Address{}) || p.TokenID == nil || p.TokenID.Sign() < 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "asset reference is required")
	}

	a.Seller = seller
	a.NFT = p.NFT
	a.TokenID = new(big.Int).Set(p.TokenID)
	a.PaymentToken = p.PaymentToken
	a.PriceFeed = p.PriceFeed
	a.StartTime = now
	a.Duration = p.Duration
	a.EndTime = now.Add(p.Duration)
	a.HighestBid = Bid{Amount: new(big.Int)}
	a.Ended = false
	return nil
}

func (LogicV1) PlaceBid(a *Auction, bid Bid, value *big.Int, now time.Time) (Bid, error) {
	if !a.Open(now) {
		return Bid{}, ErrAuctionEnded(a.Address)
	}

	if value == nil {
		value = new(big.Int)
	}
	// Native bids attach exactly the amount; token bids attach nothing and
	// are pulled through the allowance instead.
	if a.IsNative() {
		if value.Cmp(bid.Amount) != 0 {
			return Bid{}, ErrInvalidBidValue(bid.Amount, value)
		}
	} else if value.Sign() != 0 {
		return Bid{}, ErrInvalidBidValue(bid.Amount, value)
	}

	if bid.Amount.Cmp(a.HighestBid.Amount) <= 0 {
		return Bid{}, ErrBidTooLow(bid.Amount, a.HighestBid.Amount)
	}

	displaced := a.HighestBid
	a.HighestBid = Bid{Bidder: bid.Bidder, Amount: new(big.Int).Set(bid.Amount)}
	return displaced, nil
}

func (LogicV1) Withdraw(_ *Auction, account common.Address, pending *big.Int) error {
	if pending == nil || pending.Sign() == 0 {
		return ErrNothingToWithdraw(account)
	}
	return nil
}

func (LogicV1) End(a *Auction, caller common.Address, now time.Time) (Settlement, error) {
	if caller != a.Seller {
		return Settlement{}, ErrNotSeller(caller)
	}
	if now.Before(a.EndTime) {
		return Settlement{}, ErrAuctionNotYetEnded(a.Address, a.EndTime)
	}
	if a.Ended {
		return Settlement{}, ErrAlreadyEnded(a.Address)
	}

	a.Ended = true
	if a.HighestBid.IsZero() {
		return Settlement{Amount: new(big.Int)}, nil
	}
	return Settlement{
		Winner: a.HighestBid.Bidder,
		Amount: new(big.Int).Set(a.HighestBid.Amount),
	}, nil
}
