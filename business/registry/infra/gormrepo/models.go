package gormrepo

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/registry/domain"
)

// singletonID keys the only registry row.
const singletonID = 1

type registryModel struct {
	ID              uint   `gorm:"primaryKey"`
	Address         string `gorm:"type:varchar(42);not null;uniqueIndex"`
	Owner           string `gorm:"type:varchar(42);not null"`
	Implementation  string `gorm:"type:varchar(42);not null"`
	NativePriceFeed string `gorm:"type:varchar(42);not null"`
	Nonce           uint64 `gorm:"not null"`
	DeployedAt      time.Time
}

func (registryModel) TableName() string { return "registry" }

// listingModel indexes auctions by seller. Seq keeps creation order.
type listingModel struct {
	Seq     uint64 `gorm:"primaryKey;autoIncrement"`
	Seller  string `gorm:"type:varchar(42);not null;index"`
	Auction string `gorm:"type:varchar(42);not null;uniqueIndex"`
}

func (listingModel) TableName() string { return "registry_listings" }

func toModel(r *domain.Registry) *registryModel {
	return &registryModel{
		ID:              singletonID,
		Address:         r.Address.Hex(),
		Owner:           r.Owner.Hex(),
		Implementation:  r.Implementation.Hex(),
		NativePriceFeed: r.NativePriceFeed.Hex(),
		Nonce:           r.Nonce,
		DeployedAt:      r.DeployedAt,
	}
}

func (m *registryModel) toDomain() *domain.Registry {
	return &domain.Registry{
		Address:         common.HexToAddress(m.Address),
		Owner:           common.HexToAddress(m.Owner),
		Implementation:  common.HexToAddress(m.Implementation),
		NativePriceFeed: common.HexToAddress(m.NativePriceFeed),
		Nonce:           m.Nonce,
		DeployedAt:      m.DeployedAt,
	}
}
