package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/nft-auction/business/custody/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/logger"
)

// CustodyService is the non-fungible asset ledger. Every mutating call runs
// in its own transaction or joins the caller's.
type CustodyService struct {
	repo Repository
	tx   Transactor
	log  logger.LoggerInterface
}

// NewCustodyService creates a CustodyService.
func NewCustodyService(repo Repository, tx Transactor, log logger.LoggerInterface) *CustodyService {
	return &CustodyService{repo: repo, tx: tx, log: log}
}

// DeployCollection creates a collection owned by owner. The address is
// derived from the owner and the number of collections it already deployed.
func (s *CustodyService) DeployCollection(ctx context.Context, owner common.Address, name, symbol, baseURI string) (*domain.Collection, error) {
	if owner == (common.Address{}) {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "collection owner is the zero address")
	}

	var out *domain.Collection
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		n, err := s.repo.CountCollections(ctx, owner)
		if err != nil {
			return err
		}

		c := &domain.Collection{
			Address: crypto.CreateAddress(owner, uint64(n)),
			Name:    name,
			Symbol:  symbol,
			BaseURI: baseURI,
			Owner:   owner,
		}
		if err := s.repo.CreateCollection(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "collection deployed", "address", out.Address.Hex(), "name", name, "symbol", symbol)
	return out, nil
}

// Collection returns collection metadata.
func (s *CustodyService) Collection(ctx context.Context, addr common.Address) (*domain.Collection, error) {
	return s.repo.GetCollection(ctx, addr)
}

// Name returns the collection name.
func (s *CustodyService) Name(ctx context.Context, addr common.Address) (string, error) {
	c, err := s.repo.GetCollection(ctx, addr)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// Symbol returns the collection symbol.
func (s *CustodyService) Symbol(ctx context.Context, addr common.Address) (string, error) {
	c, err := s.repo.GetCollection(ctx, addr)
	if err != nil {
		return "", err
	}
	return c.Symbol, nil
}

// Mint creates token id owned by to. Only the collection owner may mint.
func (s *CustodyService) Mint(ctx context.Context, collection, caller, to common.Address, id *big.Int) error {
	return s.BatchMint(ctx, collection, caller, to, []*big.Int{id})
}

// BatchMint mints every id to to, or none of them.
func (s *CustodyService) BatchMint(ctx context.Context, collection, caller, to common.Address, ids []*big.Int) error {
	if to == (common.Address{}) {
		return apperror.Validation(apperror.CodeInvalidInput, "mint to the zero address")
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetCollection(ctx, collection)
		if err != nil {
			return err
		}
		if caller != c.Owner {
			return apperror.Forbidden(apperror.CodeNotOwner, caller.Hex())
		}

		for _, id := range ids {
			if id == nil || id.Sign() < 0 {
				return apperror.Validation(apperror.CodeInvalidInput, "token id must be a non-negative integer")
			}

			_, err := s.repo.GetToken(ctx, collection, id)
			switch {
			case err == nil:
				return apperror.Conflict(apperror.CodeTokenExists, collection.Hex()+"#"+id.String())
			case !apperror.HasCode(err, apperror.CodeTokenNotFound):
				return err
			}

			tok := &domain.Token{Collection: collection, ID: new(big.Int).Set(id), Owner: to}
			if err := s.repo.CreateToken(ctx, tok); err != nil {
				return err
			}
		}
		return nil
	})
}

// OwnerOf returns the owner of token id.
func (s *CustodyService) OwnerOf(ctx context.Context, collection common.Address, id *big.Int) (common.Address, error) {
	tok, err := s.repo.GetToken(ctx, collection, id)
	if err != nil {
		return common.Address{}, err
	}
	return tok.Owner, nil
}

// TokenURI returns the metadata URI of an existing token.
func (s *CustodyService) TokenURI(ctx context.Context, collection common.Address, id *big.Int) (string, error) {
	c, err := s.repo.GetCollection(ctx, collection)
	if err != nil {
		return "", err
	}
	if _, err := s.repo.GetToken(ctx, collection, id); err != nil {
		return "", err
	}
	return c.TokenURI(id), nil
}

// TokensOf lists the tokens held by owner.
func (s *CustodyService) TokensOf(ctx context.Context, collection, owner common.Address) ([]*domain.Token, error) {
	return s.repo.TokensOf(ctx, collection, owner)
}

// Approve lets spender move token id. The caller must own the token or be
// an operator of its owner.
func (s *CustodyService) Approve(ctx context.Context, collection, caller, spender common.Address, id *big.Int) error {
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		tok, err := s.repo.GetToken(ctx, collection, id)
		if err != nil {
			return err
		}

		if caller != tok.Owner {
			ok, err := s.repo.IsApprovedForAll(ctx, collection, tok.Owner, caller)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Forbidden(apperror.CodeNotAuthorized, "approve "+collection.Hex()+"#"+id.String())
			}
		}

		tok.Approved = spender
		return s.repo.SaveToken(ctx, tok)
	})
}

// GetApproved returns the single-token approval of id.
func (s *CustodyService) GetApproved(ctx context.Context, collection common.Address, id *big.Int) (common.Address, error) {
	tok, err := s.repo.GetToken(ctx, collection, id)
	if err != nil {
		return common.Address{}, err
	}
	return tok.Approved, nil
}

// SetApprovalForAll grants or revokes operator over every token of caller.
func (s *CustodyService) SetApprovalForAll(ctx context.Context, collection, caller, operator common.Address, approved bool) error {
	if caller == operator {
		return apperror.Validation(apperror.CodeInvalidInput, "approve to caller")
	}
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetCollection(ctx, collection); err != nil {
			return err
		}
		return s.repo.SetApprovalForAll(ctx, collection, caller, operator, approved)
	})
}

// IsApprovedForAll reports whether operator manages every token of owner.
func (s *CustodyService) IsApprovedForAll(ctx context.Context, collection, owner, operator common.Address) (bool, error) {
	return s.repo.IsApprovedForAll(ctx, collection, owner, operator)
}

// TransferFrom moves token id from from to to on behalf of operator.
func (s *CustodyService) TransferFrom(ctx context.Context, collection, operator, from, to common.Address, id *big.Int) error {
	if to == (common.Address{}) {
		return apperror.Validation(apperror.CodeInvalidInput, "transfer to the zero address")
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		tok, err := s.repo.GetToken(ctx, collection, id)
		if err != nil {
			return err
		}
		if tok.Owner != from {
			return apperror.New(apperror.CodeTransferFailed,
				apperror.WithContext("transfer from incorrect owner "+from.Hex()))
		}

		forAll := false
		if operator != tok.Owner && operator != tok.Approved {
			if forAll, err = s.repo.IsApprovedForAll(ctx, collection, tok.Owner, operator); err != nil {
				return err
			}
		}
		if !tok.CanTransfer(operator, forAll) {
			return apperror.Forbidden(apperror.CodeNotAuthorized, operator.Hex())
		}

		tok.Transfer(to)
		if err := s.repo.SaveToken(ctx, tok); err != nil {
			return err
		}

		s.log.Debug(ctx, "token transferred",
			"collection", collection.Hex(), "token_id", id.String(),
			"from", from.Hex(), "to", to.Hex(), "operator", operator.Hex())
		return nil
	})
}
