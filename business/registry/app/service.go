package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	auctionapp "github.com/fd1az/nft-auction/business/auction/app"
	"github.com/fd1az/nft-auction/business/registry/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
)

// CreateAuctionRequest lists an asset the caller owns and approved to the registry.
type CreateAuctionRequest struct {
	NFT          common.Address `validate:"required"`
	TokenID      *big.Int       `validate:"required"`
	PaymentToken common.Address
	PriceFeed    common.Address
	Duration     time.Duration `validate:"gt=0"`
}

// Dependencies groups the collaborators of RegistryService.
type Dependencies struct {
	Repo            Repository
	Tx              Transactor
	Auctions        Auctions
	Implementations Implementations
	Custodian       Custodian
	Events          EventEmitter
	Clock           clock.Clock
	Log             logger.LoggerInterface
}

// RegistryService is the auction factory: it creates instances bound to
// the current implementation and indexes them by seller.
type RegistryService struct {
	repo      Repository
	tx        Transactor
	auctions  Auctions
	impls     Implementations
	custodian Custodian
	events    EventEmitter
	clock     clock.Clock
	log       logger.LoggerInterface
	validate  *validator.Validate
}

// NewRegistryService creates a RegistryService.
func NewRegistryService(d Dependencies) *RegistryService {
	return &RegistryService{
		repo:      d.Repo,
		tx:        d.Tx,
		auctions:  d.Auctions,
		impls:     d.Implementations,
		custodian: d.Custodian,
		events:    d.Events,
		clock:     d.Clock,
		log:       d.Log,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Deploy creates the registry. A zero implementation binds the default logic.
func (s *RegistryService) Deploy(ctx context.Context, owner, implementation, nativeFeed common.Address) (*domain.Registry, error) {
	if owner == (common.Address{}) {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "registry owner is the zero address")
	}
	if implementation == (common.Address{}) {
		implementation = s.impls.Default()
	}
	if !s.impls.Has(implementation) {
		return nil, errInvalidImplementation(implementation)
	}

	var out *domain.Registry
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx)
		if err == nil {
			return domain.ErrAlreadyDeployed(existing.Address)
		}
		if !apperror.HasCode(err, apperror.CodeRegistryNotDeployed) {
			return err
		}

		r := &domain.Registry{
			Address:         domain.Address(owner),
			Owner:           owner,
			Implementation:  implementation,
			NativePriceFeed: nativeFeed,
			DeployedAt:      s.clock.Now(),
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "registry deployed",
		"address", out.Address.Hex(),
		"owner", out.Owner.Hex(),
		"implementation", out.Implementation.Hex(),
	)
	return out, nil
}

// Get returns the registry.
func (s *RegistryService) Get(ctx context.Context) (*domain.Registry, error) {
	return s.repo.Get(ctx)
}

// CreateAuction escrows the asset into a new instance bound to the current
// implementation, with caller as seller, and returns the instance address.
func (s *RegistryService) CreateAuction(ctx context.Context, caller common.Address, req CreateAuctionRequest) (common.Address, error) {
	if err := s.validate.Struct(req); err != nil {
		return common.Address{}, validationError(err)
	}

	var auction common.Address
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.Get(ctx)
		if err != nil {
			return err
		}

		auction = r.NextAuctionAddress()
		if err := s.repo.Save(ctx, r); err != nil {
			return err
		}

		// The custodian rejects unless caller owns the asset and approved the registry.
		if err := s.custodian.TransferFrom(ctx, req.NFT, r.Address, caller, auction, req.TokenID); err != nil {
			return err
		}

		a, err := s.auctions.Initialize(ctx, auctionapp.InitRequest{
			Auction:        auction,
			Implementation: r.Implementation,
			Caller:         caller,
			NFT:            req.NFT,
			TokenID:        req.TokenID,
			PaymentToken:   req.PaymentToken,
			PriceFeed:      r.FeedFor(req.PriceFeed),
			Duration:       req.Duration,
		})
		if err != nil {
			return err
		}

		if err := s.repo.AppendListing(ctx, caller, auction); err != nil {
			return err
		}

		return s.events.Emit(ctx, events.AuctionCreated, r.Address, events.AuctionCreatedPayload{
			Auction:        auction,
			Seller:         caller,
			NFT:            req.NFT,
			TokenID:        req.TokenID.String(),
			PaymentToken:   req.PaymentToken,
			Implementation: r.Implementation,
			EndTime:        a.EndTime,
		})
	})
	if err != nil {
		return common.Address{}, err
	}

	s.log.Info(ctx, "auction created",
		"auction", auction.Hex(),
		"seller", caller.Hex(),
		"nft", req.NFT.Hex(),
		"token_id", req.TokenID.String(),
	)
	return auction, nil
}

// GetAuctionsByUser returns seller's auctions in creation order.
func (s *RegistryService) GetAuctionsByUser(ctx context.Context, seller common.Address) ([]common.Address, error) {
	list, err := s.repo.Listings(ctx, seller)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []common.Address{}
	}
	return list, nil
}

// UpgradeAuctionImplementation points future instances at newImpl. Existing
// instances keep the implementation they were created with.
func (s *RegistryService) UpgradeAuctionImplementation(ctx context.Context, caller, newImpl common.Address) error {
	if !s.impls.Has(newImpl) {
		return errInvalidImplementation(newImpl)
	}

	var previous common.Address
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.Get(ctx)
		if err != nil {
			return err
		}
		if err := r.CheckOwner(caller); err != nil {
			return err
		}

		previous = r.Implementation
		r.Implementation = newImpl
		if err := s.repo.Save(ctx, r); err != nil {
			return err
		}
		return s.events.Emit(ctx, events.ImplementationUpgraded, r.Address, events.ImplementationUpgradedPayload{
			Previous: previous,
			Current:  newImpl,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "auction implementation upgraded", "previous", previous.Hex(), "current", newImpl.Hex())
	return nil
}

// TransferOwnership hands the registry to newOwner.
func (s *RegistryService) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return apperror.Validation(apperror.CodeInvalidInput, "new owner is the zero address")
	}
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.Get(ctx)
		if err != nil {
			return err
		}
		if err := r.CheckOwner(caller); err != nil {
			return err
		}
		r.Owner = newOwner
		return s.repo.Save(ctx, r)
	})
}

// AuctionImplementation is the implementation new instances bind to.
func (s *RegistryService) AuctionImplementation(ctx context.Context) (common.Address, error) {
	r, err := s.repo.Get(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return r.Implementation, nil
}

func (s *RegistryService) Owner(ctx context.Context) (common.Address, error) {
	r, err := s.repo.Get(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return r.Owner, nil
}

func (s *RegistryService) NativePriceFeed(ctx context.Context) (common.Address, error) {
	r, err := s.repo.Get(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return r.NativePriceFeed, nil
}

func errInvalidImplementation(addr common.Address) error {
	return apperror.Validation(apperror.CodeInvalidImplementation, "no logic deployed at "+addr.Hex())
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("%s failed on %q", f.Field(), f.Tag()))
	}
	return apperror.Validation(apperror.CodeInvalidInput, err.Error())
}
