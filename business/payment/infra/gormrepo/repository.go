// Package gormrepo persists the payment ledger with gorm.
package gormrepo

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"github.com/fd1az/nft-auction/business/payment/app"
	"github.com/fd1az/nft-auction/internal/store"
)

// Amounts are kept as decimal text so uint256 values survive both drivers.
type balanceModel struct {
	Currency string          `gorm:"primaryKey;type:varchar(42)"`
	Account  string          `gorm:"primaryKey;type:varchar(42)"`
	Amount   decimal.Decimal `gorm:"type:varchar(96)"`
}

func (balanceModel) TableName() string { return "payment_balances" }

type allowanceModel struct {
	Currency string          `gorm:"primaryKey;type:varchar(42)"`
	Owner    string          `gorm:"primaryKey;type:varchar(42)"`
	Spender  string          `gorm:"primaryKey;type:varchar(42)"`
	Amount   decimal.Decimal `gorm:"type:varchar(96)"`
}

func (allowanceModel) TableName() string { return "payment_allowances" }

// Repository implements app.Repository.
type Repository struct {
	db *store.DB
}

var _ app.Repository = (*Repository)(nil)

// New migrates the payment tables and returns the repository.
func New(db *store.DB) (*Repository, error) {
	if err := db.Migrate(&balanceModel{}, &allowanceModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Balance(ctx context.Context, currency, account common.Address) (*big.Int, error) {
	var m balanceModel
	res := r.db.Conn(ctx).
		Where("currency = ? AND account = ?", currency.Hex(), account.Hex()).
		Limit(1).Find(&m)
	if res.Error != nil {
		return nil, store.Wrap(res.Error, "read balance")
	}
	if res.RowsAffected == 0 {
		return new(big.Int), nil
	}
	return m.Amount.BigInt(), nil
}

func (r *Repository) SetBalance(ctx context.Context, currency, account common.Address, amount *big.Int) error {
	m := balanceModel{
		Currency: currency.Hex(),
		Account:  account.Hex(),
		Amount:   decimal.NewFromBigInt(amount, 0),
	}
	err := r.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}, {Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&m).Error
	return store.Wrap(err, "write balance")
}

func (r *Repository) Allowance(ctx context.Context, currency, owner, spender common.Address) (*big.Int, error) {
	var m allowanceModel
	res := r.db.Conn(ctx).
		Where("currency = ? AND owner = ? AND spender = ?", currency.Hex(), owner.Hex(), spender.Hex()).
		Limit(1).Find(&m)
	if res.Error != nil {
		return nil, store.Wrap(res.Error, "read allowance")
	}
	if res.RowsAffected == 0 {
		return new(big.Int), nil
	}
	return m.Amount.BigInt(), nil
}

func (r *Repository) SetAllowance(ctx context.Context, currency, owner, spender common.Address, amount *big.Int) error {
	m := allowanceModel{
		Currency: currency.Hex(),
		Owner:    owner.Hex(),
		Spender:  spender.Hex(),
		Amount:   decimal.NewFromBigInt(amount, 0),
	}
	err := r.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}, {Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&m).Error
	return store.Wrap(err, "write allowance")
}
