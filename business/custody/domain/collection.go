// Package domain contains the core types of the asset custody context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// Collection is a non-fungible token collection. Owner is the only account
// allowed to mint.
type Collection struct {
	Address common.Address
	Name    string
	Symbol  string
	BaseURI string
	Owner   common.Address
}

// TokenURI returns baseURI followed by the decimal token id.
func (c *Collection) TokenURI(id *big.Int) string {
	if c.BaseURI == "" {
		return ""
	}
	return c.BaseURI + id.String()
}

// Token is one minted item.
type Token struct {
	Collection common.Address
	ID         *big.Int
	Owner      common.Address
	// Approved may move this single token. Cleared on every transfer.
	Approved common.Address
}

// CanTransfer reports whether operator may move t out of its owner's hands.
func (t *Token) CanTransfer(operator common.Address, operatorForAll bool) bool {
	return operator == t.Owner || operator == t.Approved || operatorForAll
}

// Transfer moves ownership to to and clears the single-token approval.
func (t *Token) Transfer(to common.Address) {
	t.Owner = to
	t.Approved = common.Address{}
}

// ErrTokenNotFound is returned for unminted ids.
func ErrTokenNotFound(collection common.Address, id *big.Int) error {
	return apperror.NotFound(apperror.CodeTokenNotFound, collection.Hex()+"#"+id.String())
}

// ErrCollectionNotFound is returned for unknown collection addresses.
func ErrCollectionNotFound(collection common.Address) error {
	return apperror.NotFound(apperror.CodeCollectionUnset, collection.Hex())
}
