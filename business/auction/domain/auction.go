// Package domain contains the auction state machine and its versioned logic.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// State of an auction instance.
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Bid is a bidder and an amount in the payment currency's smallest unit.
// A zero Bidder means no bid.
type Bid struct {
	Bidder common.Address
	Amount *big.Int
}

// IsZero reports whether no bid was ever placed.
func (b Bid) IsZero() bool {
	return b.Bidder == (common.Address{})
}

// Auction is one single-item auction instance. The implementation it was
// bound to at creation never changes.
type Auction struct {
	Address        common.Address
	Implementation common.Address
	Seller         common.Address
	NFT            common.Address
	TokenID        *big.Int
	PaymentToken   common.Address // zero = native currency
	PriceFeed      common.Address // zero = native feed
	StartTime      time.Time
	Duration       time.Duration
	EndTime        time.Time
	HighestBid     Bid
	Ended          bool
}

// State returns Ended once finalised, Active otherwise.
func (a *Auction) State() State {
	if a.Ended {
		return StateEnded
	}
	return StateActive
}

// IsNative reports whether bids are paid in the native currency.
func (a *Auction) IsNative() bool {
	return a.PaymentToken == (common.Address{})
}

// Open reports whether bids are still accepted at now.
func (a *Auction) Open(now time.Time) bool {
	return !a.Ended && now.Before(a.EndTime)
}

// InitParams are the arguments of initialize.
type InitParams struct {
	NFT          common.Address
	TokenID      *big.Int
	PaymentToken common.Address
	PriceFeed    common.Address
	Duration     time.Duration
}

// Settlement is what finalisation has to move. A zero Winner means the asset
// goes back to the seller and no funds move.
type Settlement struct {
	Winner common.Address
	Amount *big.Int
}

// HasWinner reports whether someone won.
func (s Settlement) HasWinner() bool {
	return s.Winner != (common.Address{})
}

func ErrAlreadyInitialized(addr common.Address) error {
	return apperror.New(apperror.CodeAlreadyInitialized, apperror.WithContext(addr.Hex()))
}

func ErrAuctionNotFound(addr common.Address) error {
	return apperror.New(apperror.CodeAuctionNotFound, apperror.WithContext(addr.Hex()))
}

func ErrAuctionEnded(addr common.Address) error {
	return apperror.New(apperror.CodeAuctionEnded, apperror.WithContext(addr.Hex()))
}

func ErrAuctionNotYetEnded(addr common.Address, end time.Time) error {
	return apperror.New(apperror.CodeAuctionNotYetEnded,
		apperror.WithContext(addr.Hex()+" ends at "+end.UTC().Format(time.RFC3339)))
}

func ErrAlreadyEnded(addr common.Address) error {
	return apperror.New(apperror.CodeAlreadyEnded, apperror.WithContext(addr.Hex()))
}

func ErrBidTooLow(amount, highest *big.Int) error {
	return apperror.New(apperror.CodeBidTooLow,
		apperror.WithContext("bid "+amount.String()+" does not exceed "+highest.String()))
}

func ErrInvalidBidValue(amount, value *big.Int) error {
	return apperror.New(apperror.CodeInvalidBidValue,
		apperror.WithContext("amount "+amount.String()+" attached value "+value.String()))
}

func ErrNotSeller(caller common.Address) error {
	return apperror.New(apperror.CodeNotSeller, apperror.WithContext(caller.Hex()))
}

func ErrNothingToWithdraw(account common.Address) error {
	return apperror.New(apperror.CodeNothingToWithdraw, apperror.WithContext(account.Hex()))
}
