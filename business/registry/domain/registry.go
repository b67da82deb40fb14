// Package domain contains the auction registry aggregate.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// Registry is the auction factory. There is one per ledger.
type Registry struct {
	Address         common.Address
	Owner           common.Address
	Implementation  common.Address
	NativePriceFeed common.Address
	// Nonce counts created auctions and seeds their addresses.
	Nonce      uint64
	DeployedAt time.Time
}

var registryCodeHash = crypto.Keccak256([]byte("NFTAuctionRegistry"))

// Address of the registry deployed by owner. It is a CREATE2 address so it
// never collides with the owner's nonce-derived deployments.
func Address(owner common.Address) common.Address {
	return crypto.CreateAddress2(owner, [32]byte{}, registryCodeHash)
}

// NextAuctionAddress derives the address of the next instance and bumps the nonce.
func (r *Registry) NextAuctionAddress() common.Address {
	addr := crypto.CreateAddress(r.Address, r.Nonce)
	r.Nonce++
	return addr
}

// CheckOwner rejects every caller but the owner.
func (r *Registry) CheckOwner(caller common.Address) error {
	if caller != r.Owner {
		return apperror.Forbidden(apperror.CodeNotOwner, caller.Hex())
	}
	return nil
}

// FeedFor binds the zero feed sentinel to the registry's native feed.
func (r *Registry) FeedFor(feed common.Address) common.Address {
	if feed == (common.Address{}) {
		return r.NativePriceFeed
	}
	return feed
}

func ErrNotDeployed() error {
	return apperror.New(apperror.CodeRegistryNotDeployed)
}

func ErrAlreadyDeployed(addr common.Address) error {
	return apperror.New(apperror.CodeRegistryDeployed, apperror.WithContext(addr.Hex()))
}
