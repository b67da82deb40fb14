// Package gormrepo persists the custody ledger with gorm.
package gormrepo

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/custody/domain"
)

type collectionModel struct {
	Address string `gorm:"primaryKey;type:varchar(42)"`
	Name    string
	Symbol  string
	BaseURI string
	Owner   string `gorm:"type:varchar(42);index"`
}

func (collectionModel) TableName() string { return "custody_collections" }

func (m collectionModel) toDomain() *domain.Collection {
	return &domain.Collection{
		Address: common.HexToAddress(m.Address),
		Name:    m.Name,
		Symbol:  m.Symbol,
		BaseURI: m.BaseURI,
		Owner:   common.HexToAddress(m.Owner),
	}
}

type tokenModel struct {
	Collection string `gorm:"primaryKey;type:varchar(42)"`
	TokenID    string `gorm:"primaryKey;type:varchar(78)"`
	Owner      string `gorm:"type:varchar(42);index"`
	Approved   string `gorm:"type:varchar(42)"`
}

func (tokenModel) TableName() string { return "custody_tokens" }

func (m tokenModel) toDomain() *domain.Token {
	id, _ := new(big.Int).SetString(m.TokenID, 10)
	return &domain.Token{
		Collection: common.HexToAddress(m.Collection),
		ID:         id,
		Owner:      common.HexToAddress(m.Owner),
		Approved:   common.HexToAddress(m.Approved),
	}
}

func tokenFromDomain(t *domain.Token) tokenModel {
	return tokenModel{
		Collection: t.Collection.Hex(),
		TokenID:    t.ID.String(),
		Owner:      t.Owner.Hex(),
		Approved:   t.Approved.Hex(),
	}
}

type operatorModel struct {
	Collection string `gorm:"primaryKey;type:varchar(42)"`
	Owner      string `gorm:"primaryKey;type:varchar(42)"`
	Operator   string `gorm:"primaryKey;type:varchar(42)"`
}

func (operatorModel) TableName() string { return "custody_operators" }
