// Package gormrepo persists auction instances with gorm.
package gormrepo

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"github.com/fd1az/nft-auction/business/auction/app"
	"github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/internal/store"
)

const maxListLimit = 500

// Repository implements app.Repository.
type Repository struct {
	db *store.DB
}

var _ app.Repository = (*Repository)(nil)

// New migrates the auction tables and returns the repository.
func New(db *store.DB) (*Repository, error) {
	if err := db.Migrate(&auctionModel{}, &pendingReturnModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, a *domain.Auction) error {
	return store.Wrap(r.db.Conn(ctx).Create(toModel(a)).Error, "create auction")
}

func (r *Repository) Get(ctx context.Context, addr common.Address) (*domain.Auction, error) {
	var m auctionModel
	res := r.db.Conn(ctx).Where("address = ?", addr.Hex()).Limit(1).Find(&m)
	if res.Error != nil {
		return nil, store.Wrap(res.Error, "read auction")
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrAuctionNotFound(addr)
	}
	return m.toDomain(), nil
}

func (r *Repository) Exists(ctx context.Context, addr common.Address) (bool, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&auctionModel{}).Where("address = ?", addr.Hex()).Count(&n).Error
	if err != nil {
		return false, store.Wrap(err, "count auctions")
	}
	return n > 0, nil
}

// Save writes the mutable fields. Everything fixed at initialisation is left alone.
func (r *Repository) Save(ctx context.Context, a *domain.Auction) error {
	m := toModel(a)
	err := r.db.Conn(ctx).Model(&auctionModel{}).
		Where("address = ?", m.Address).
		Updates(map[string]any{
			"highest_bidder": m.HighestBidder,
			"highest_amount": m.HighestAmount,
			"ended":          m.Ended,
		}).Error
	return store.Wrap(err, "save auction")
}

func (r *Repository) List(ctx context.Context, f app.ListFilter) ([]*domain.Auction, error) {
	q := r.db.Conn(ctx).Model(&auctionModel{})
	if f.Seller != nil {
		q = q.Where("seller = ?", f.Seller.Hex())
	}
	switch f.State {
	case domain.StateActive:
		q = q.Where("ended = ?", false)
	case domain.StateEnded:
		q = q.Where("ended = ?", true)
	}

	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var models []auctionModel
	err := q.Order("start_time ASC").Order("address ASC").Limit(limit).Offset(f.Offset).Find(&models).Error
	if err != nil {
		return nil, store.Wrap(err, "list auctions")
	}

	out := make([]*domain.Auction, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

func (r *Repository) PendingReturn(ctx context.Context, auction, account common.Address) (*big.Int, error) {
	var m pendingReturnModel
	res := r.db.Conn(ctx).
		Where("auction = ? AND account = ?", auction.Hex(), account.Hex()).
		Limit(1).Find(&m)
	if res.Error != nil {
		return nil, store.Wrap(res.Error, "read pending return")
	}
	if res.RowsAffected == 0 {
		return new(big.Int), nil
	}
	return m.Amount.BigInt(), nil
}

func (r *Repository) SetPendingReturn(ctx context.Context, auction, account common.Address, amount *big.Int) error {
	m := pendingReturnModel{
		Auction: auction.Hex(),
		Account: account.Hex(),
		Amount:  decimal.NewFromBigInt(amount, 0),
	}
	err := r.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auction"}, {Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&m).Error
	return store.Wrap(err, "write pending return")
}
