package gormrepo

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm/clause"

	"github.com/fd1az/nft-auction/business/custody/app"
	"github.com/fd1az/nft-auction/business/custody/domain"
	"github.com/fd1az/nft-auction/internal/store"
)

// Repository implements app.Repository.
type Repository struct {
	db *store.DB
}

var _ app.Repository = (*Repository)(nil)

// New migrates the custody tables and returns the repository.
func New(db *store.DB) (*Repository, error) {
	if err := db.Migrate(&collectionModel{}, &tokenModel{}, &operatorModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) CreateCollection(ctx context.Context, c *domain.Collection) error {
	m := collectionModel{
		Address: c.Address.Hex(),
		Name:    c.Name,
		Symbol:  c.Symbol,
		BaseURI: c.BaseURI,
		Owner:   c.Owner.Hex(),
	}
	return store.Wrap(r.db.Conn(ctx).Create(&m).Error, "create collection")
}

func (r *Repository) GetCollection(ctx context.Context, addr common.Address) (*domain.Collection, error) {
	var m collectionModel
	err := r.db.Conn(ctx).Where("address = ?", addr.Hex()).First(&m).Error
	if store.IsNotFound(err) {
		return nil, domain.ErrCollectionNotFound(addr)
	}
	if err != nil {
		return nil, store.Wrap(err, "get collection")
	}
	return m.toDomain(), nil
}

func (r *Repository) CountCollections(ctx context.Context, owner common.Address) (int64, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&collectionModel{}).Where("owner = ?", owner.Hex()).Count(&n).Error
	return n, store.Wrap(err, "count collections")
}

func (r *Repository) GetToken(ctx context.Context, collection common.Address, id *big.Int) (*domain.Token, error) {
	var m tokenModel
	err := r.db.Conn(ctx).
		Where("collection = ? AND token_id = ?", collection.Hex(), id.String()).
		First(&m).Error
	if store.IsNotFound(err) {
		return nil, domain.ErrTokenNotFound(collection, id)
	}
	if err != nil {
		return nil, store.Wrap(err, "get token")
	}
	return m.toDomain(), nil
}

func (r *Repository) CreateToken(ctx context.Context, t *domain.Token) error {
	m := tokenFromDomain(t)
	return store.Wrap(r.db.Conn(ctx).Create(&m).Error, "create token")
}

func (r *Repository) SaveToken(ctx context.Context, t *domain.Token) error {
	m := tokenFromDomain(t)
	return store.Wrap(r.db.Conn(ctx).Save(&m).Error, "save token")
}

func (r *Repository) TokensOf(ctx context.Context, collection, owner common.Address) ([]*domain.Token, error) {
	var ms []tokenModel
	err := r.db.Conn(ctx).
		Where("collection = ? AND owner = ?", collection.Hex(), owner.Hex()).
		Find(&ms).Error
	if err != nil {
		return nil, store.Wrap(err, "list tokens")
	}

	out := make([]*domain.Token, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	sortByID(out)
	return out, nil
}

func (r *Repository) IsApprovedForAll(ctx context.Context, collection, owner, operator common.Address) (bool, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&operatorModel{}).
		Where("collection = ? AND owner = ? AND operator = ?", collection.Hex(), owner.Hex(), operator.Hex()).
		Count(&n).Error
	return n > 0, store.Wrap(err, "operator lookup")
}

func (r *Repository) SetApprovalForAll(ctx context.Context, collection, owner, operator common.Address, approved bool) error {
	m := operatorModel{Collection: collection.Hex(), Owner: owner.Hex(), Operator: operator.Hex()}
	if !approved {
		return store.Wrap(r.db.Conn(ctx).Delete(&m).Error, "revoke operator")
	}
	err := r.db.Conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
	return store.Wrap(err, "grant operator")
}
