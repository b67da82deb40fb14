package gormrepo

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/nft-auction/business/auction/domain"
)

type auctionModel struct {
	Address        string          `gorm:"primaryKey;type:varchar(42)"`
	Implementation string          `gorm:"type:varchar(42);not null"`
	Seller         string          `gorm:"type:varchar(42);not null;index"`
	NFT            string          `gorm:"column:nft;type:varchar(42);not null"`
	TokenID        string          `gorm:"type:varchar(78);not null"`
	PaymentToken   string          `gorm:"type:varchar(42);not null"`
	PriceFeed      string          `gorm:"type:varchar(42);not null"`
	StartTime      time.Time       `gorm:"not null;index"`
	DurationNanos  int64           `gorm:"not null"`
	EndTime        time.Time       `gorm:"not null"`
	HighestBidder  string          `gorm:"type:varchar(42);not null"`
	HighestAmount  decimal.Decimal `gorm:"type:varchar(96);not null"`
	Ended          bool            `gorm:"not null;index"`
}

func (auctionModel) TableName() string { return "auctions" }

type pendingReturnModel struct {
	Auction string          `gorm:"primaryKey;type:varchar(42)"`
	Account string          `gorm:"primaryKey;type:varchar(42)"`
	Amount  decimal.Decimal `gorm:"type:varchar(96)"`
}

func (pendingReturnModel) TableName() string { return "auction_pending_returns" }

func toModel(a *domain.Auction) *auctionModel {
	amount := a.HighestBid.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	return &auctionModel{
		Address:        a.Address.Hex(),
		Implementation: a.Implementation.Hex(),
		Seller:         a.Seller.Hex(),
		NFT:            a.NFT.Hex(),
		TokenID:        a.TokenID.String(),
		PaymentToken:   a.PaymentToken.Hex(),
		PriceFeed:      a.PriceFeed.Hex(),
		StartTime:      a.StartTime.UTC(),
		DurationNanos:  int64(a.Duration),
		EndTime:        a.EndTime.UTC(),
		HighestBidder:  a.HighestBid.Bidder.Hex(),
		HighestAmount:  decimal.NewFromBigInt(amount, 0),
		Ended:          a.Ended,
	}
}

func (m *auctionModel) toDomain() *domain.Auction {
	tokenID, ok := new(big.Int).SetString(m.TokenID, 10)
	if !ok {
		tokenID = new(big.Int)
	}
	return &domain.Auction{
		Address:        common.HexToAddress(m.Address),
		Implementation: common.HexToAddress(m.Implementation),
		Seller:         common.HexToAddress(m.Seller),
		NFT:            common.HexToAddress(m.NFT),
		TokenID:        tokenID,
		PaymentToken:   common.HexToAddress(m.PaymentToken),
		PriceFeed:      common.HexToAddress(m.PriceFeed),
		StartTime:      m.StartTime.UTC(),
		Duration:       time.Duration(m.DurationNanos),
		EndTime:        m.EndTime.UTC(),
		HighestBid: domain.Bid{
			Bidder: common.HexToAddress(m.HighestBidder),
			Amount: m.HighestAmount.BigInt(),
		},
		Ended: m.Ended,
	}
}
