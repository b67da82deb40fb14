// Package gormrepo persists the auction registry with gorm.
package gormrepo

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/registry/app"
	"github.com/fd1az/nft-auction/business/registry/domain"
	"github.com/fd1az/nft-auction/internal/store"
)

// Repository implements app.Repository.
type Repository struct {
	db *store.DB
}

var _ app.Repository = (*Repository)(nil)

// New migrates the registry tables and returns the repository.
func New(db *store.DB) (*Repository, error) {
	if err := db.Migrate(&registryModel{}, &listingModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Get(ctx context.Context) (*domain.Registry, error) {
	var m registryModel
	res := r.db.Conn(ctx).Where("id = ?", singletonID).Limit(1).Find(&m)
	if res.Error != nil {
		return nil, store.Wrap(res.Error, "read registry")
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotDeployed()
	}
	return m.toDomain(), nil
}

func (r *Repository) Create(ctx context.Context, reg *domain.Registry) error {
	return store.Wrap(r.db.Conn(ctx).Create(toModel(reg)).Error, "create registry")
}

func (r *Repository) Save(ctx context.Context, reg *domain.Registry) error {
	m := toModel(reg)
	err := r.db.Conn(ctx).Model(&registryModel{}).
		Where("id = ?", singletonID).
		Updates(map[string]any{
			"owner":          m.Owner,
			"implementation": m.Implementation,
			"nonce":          m.Nonce,
		}).Error
	return store.Wrap(err, "save registry")
}

func (r *Repository) AppendListing(ctx context.Context, seller, auction common.Address) error {
	m := listingModel{Seller: seller.Hex(), Auction: auction.Hex()}
	return store.Wrap(r.db.Conn(ctx).Create(&m).Error, "append listing")
}

func (r *Repository) Listings(ctx context.Context, seller common.Address) ([]common.Address, error) {
	var models []listingModel
	err := r.db.Conn(ctx).Where("seller = ?", seller.Hex()).Order("seq ASC").Find(&models).Error
	if err != nil {
		return nil, store.Wrap(err, "list listings")
	}

	out := make([]common.Address, 0, len(models))
	for _, m := range models {
		out = append(out, common.HexToAddress(m.Auction))
	}
	return out, nil
}
