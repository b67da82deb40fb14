package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
)

// InitRequest initializes the instance at Auction. A zero Implementation
// binds the default logic.
type InitRequest struct {
	Auction        common.Address `validate:"required"`
	Implementation common.Address
	Caller         common.Address `validate:"required"`
	NFT            common.Address `validate:"required"`
	TokenID        *big.Int       `validate:"required"`
	PaymentToken   common.Address
	PriceFeed      common.Address
	Duration       time.Duration `validate:"gt=0"`
}

// BidRequest places a bid. Value is the native amount attached to the call.
type BidRequest struct {
	Auction common.Address `validate:"required"`
	Bidder  common.Address `validate:"required"`
	Amount  *big.Int       `validate:"required"`
	Value   *big.Int
}

// Snapshot is every view of one instance plus the caller-independent state.
type Snapshot struct {
	domain.Auction
	State domain.State
}

// Dependencies groups the collaborators of AuctionService.
type Dependencies struct {
	Repo            Repository
	Tx              Transactor
	Custodian       Custodian
	Treasury        Treasury
	Oracle          PriceOracle
	Currencies      Currencies
	Events          EventEmitter
	Implementations *domain.ImplementationTable
	Clock           clock.Clock
	Log             logger.LoggerInterface
}

// AuctionService runs the auction state machine. Every mutating call is one
// ledger transaction: checks, then record updates, then outbound transfers.
// A failing transfer rolls back the whole call.
type AuctionService struct {
	repo      Repository
	tx        Transactor
	custodian Custodian
	treasury  Treasury
	oracle    PriceOracle
	curr      Currencies
	events    EventEmitter
	impls     *domain.ImplementationTable
	clock     clock.Clock
	log       logger.LoggerInterface
	validate  *validator.Validate
}

// NewAuctionService creates an AuctionService.
func NewAuctionService(d Dependencies) *AuctionService {
	return &AuctionService{
		repo:      d.Repo,
		tx:        d.Tx,
		custodian: d.Custodian,
		treasury:  d.Treasury,
		oracle:    d.Oracle,
		curr:      d.Currencies,
		events:    d.Events,
		impls:     d.Implementations,
		clock:     d.Clock,
		log:       d.Log,
		validate:  newValidator(),
	}
}

// Implementations returns the logic table instances dispatch through.
func (s *AuctionService) Implementations() *domain.ImplementationTable {
	return s.impls
}

// Initialize sets up the instance at req.Auction with the caller as seller.
// The asset is expected to be in escrow or approved to the instance already.
func (s *AuctionService) Initialize(ctx context.Context, req InitRequest) (*domain.Auction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	impl := req.Implementation
	if impl == (common.Address{}) {
		impl = s.impls.Default()
	}
	logic, err := s.impls.Resolve(impl)
	if err != nil {
		return nil, err
	}

	var out *domain.Auction
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.Exists(ctx, req.Auction)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyInitialized(req.Auction)
		}

		a := &domain.Auction{Address: req.Auction, Implementation: impl}
		if err := logic.Initialize(a, req.Caller, domain.InitParams{
			NFT:          req.NFT,
			TokenID:      req.TokenID,
			PaymentToken: req.PaymentToken,
			PriceFeed:    req.PriceFeed,
			Duration:     req.Duration,
		}, s.clock.Now()); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "auction initialized",
		"auction", out.Address.Hex(),
		"seller", out.Seller.Hex(),
		"nft", out.NFT.Hex(),
		"token_id", out.TokenID.String(),
		"end_time", out.EndTime,
	)
	return out, nil
}

// PlaceBid records a bid higher than the current one and escrows its funds.
// The displaced bidder's amount becomes refundable through Withdraw.
func (s *AuctionService) PlaceBid(ctx context.Context, req BidRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		a, logic, err := s.load(ctx, req.Auction)
		if err != nil {
			return err
		}

		displaced, err := logic.PlaceBid(a, domain.Bid{Bidder: req.Bidder, Amount: req.Amount}, req.Value, s.clock.Now())
		if err != nil {
			return err
		}

		if !displaced.IsZero() {
			if err := s.creditPending(ctx, a.Address, displaced); err != nil {
				return err
			}
		}
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}
		if err := s.events.Emit(ctx, events.BidPlaced, a.Address, events.BidPlacedPayload{
			Auction: a.Address,
			Bidder:  req.Bidder,
			Amount:  req.Amount.String(),
		}); err != nil {
			return err
		}

		if err := s.collect(ctx, a, req.Bidder, req.Amount); err != nil {
			return err
		}

		s.log.Info(ctx, "bid placed",
			"auction", a.Address.Hex(),
			"bidder", req.Bidder.Hex(),
			"amount", req.Amount.String(),
		)
		return nil
	})
}

// Withdraw pays out what account is owed from being outbid. It stays
// available after the auction ended.
func (s *AuctionService) Withdraw(ctx context.Context, auction, account common.Address) (*big.Int, error) {
	var paid *big.Int
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		a, logic, err := s.load(ctx, auction)
		if err != nil {
			return err
		}

		pending, err := s.repo.PendingReturn(ctx, auction, account)
		if err != nil {
			return err
		}
		if err := logic.Withdraw(a, account, pending); err != nil {
			return err
		}

		if err := s.repo.SetPendingReturn(ctx, auction, account, new(big.Int)); err != nil {
			return err
		}
		if err := s.events.Emit(ctx, events.Withdrawn, auction, events.WithdrawnPayload{
			Auction: auction,
			Account: account,
			Amount:  pending.String(),
		}); err != nil {
			return err
		}

		if err := s.treasury.Transfer(ctx, a.PaymentToken, auction, account, pending); err != nil {
			return transferFailed(err, "refund to "+account.Hex())
		}
		paid = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "refund withdrawn", "auction", auction.Hex(), "account", account.Hex(), "amount", paid.String())
	return paid, nil
}

// EndAuction finalises the auction: the asset goes to the highest bidder and
// the winning amount to the seller, or the asset back to the seller when
// nobody bid.
func (s *AuctionService) EndAuction(ctx context.Context, auction, caller common.Address) (domain.Settlement, error) {
	var settlement domain.Settlement
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		a, logic, err := s.load(ctx, auction)
		if err != nil {
			return err
		}

		settlement, err = logic.End(a, caller, s.clock.Now())
		if err != nil {
			return err
		}
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}

		recipient := a.Seller
		if settlement.HasWinner() {
			recipient = settlement.Winner
		}
		if err := s.releaseAsset(ctx, a, recipient); err != nil {
			return err
		}
		if settlement.HasWinner() {
			if err := s.treasury.Transfer(ctx, a.PaymentToken, a.Address, a.Seller, settlement.Amount); err != nil {
				return transferFailed(err, "proceeds to seller "+a.Seller.Hex())
			}
		}

		return s.events.Emit(ctx, events.AuctionEnded, a.Address, events.AuctionEndedPayload{
			Auction: a.Address,
			Winner:  settlement.Winner,
			Amount:  settlement.Amount.String(),
		})
	})
	if err != nil {
		return domain.Settlement{}, err
	}

	s.log.Info(ctx, "auction ended",
		"auction", auction.Hex(),
		"winner", settlement.Winner.Hex(),
		"amount", settlement.Amount.String(),
	)
	return settlement, nil
}

// GetPriceInUSD returns the price of the instance's feed in 18-decimal USD.
func (s *AuctionService) GetPriceInUSD(ctx context.Context, auction common.Address) (*big.Int, error) {
	a, err := s.repo.Get(ctx, auction)
	if err != nil {
		return nil, err
	}
	return s.oracle.PriceInUSD(ctx, a.PriceFeed)
}

// HighestBidInUSD values the current highest bid in 18-decimal USD.
func (s *AuctionService) HighestBidInUSD(ctx context.Context, auction common.Address) (*big.Int, error) {
	a, err := s.repo.Get(ctx, auction)
	if err != nil {
		return nil, err
	}
	price, err := s.oracle.PriceInUSD(ctx, a.PriceFeed)
	if err != nil {
		return nil, err
	}
	return usdValue(a.HighestBid.Amount, s.curr.Decimals(a.PaymentToken), price), nil
}

// PendingReturn is what account can withdraw from auction.
func (s *AuctionService) PendingReturn(ctx context.Context, auction, account common.Address) (*big.Int, error) {
	if _, err := s.repo.Get(ctx, auction); err != nil {
		return nil, err
	}
	return s.repo.PendingReturn(ctx, auction, account)
}

// Get returns a snapshot of the instance.
func (s *AuctionService) Get(ctx context.Context, auction common.Address) (*Snapshot, error) {
	a, err := s.repo.Get(ctx, auction)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Auction: *a, State: a.State()}, nil
}

// List returns instances matching f ordered by start time.
func (s *AuctionService) List(ctx context.Context, f ListFilter) ([]*Snapshot, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*Snapshot, 0, len(list))
	for _, a := range list {
		out = append(out, &Snapshot{Auction: *a, State: a.State()})
	}
	return out, nil
}

func (s *AuctionService) load(ctx context.Context, addr common.Address) (*domain.Auction, domain.Logic, error) {
	a, err := s.repo.Get(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	logic, err := s.impls.Resolve(a.Implementation)
	if err != nil {
		return nil, nil, err
	}
	return a, logic, nil
}

func (s *AuctionService) creditPending(ctx context.Context, auction common.Address, b domain.Bid) error {
	pending, err := s.repo.PendingReturn(ctx, auction, b.Bidder)
	if err != nil {
		return err
	}
	return s.repo.SetPendingReturn(ctx, auction, b.Bidder, new(big.Int).Add(pending, b.Amount))
}

// collect escrows a bid on the instance's own account.
func (s *AuctionService) collect(ctx context.Context, a *domain.Auction, bidder common.Address, amount *big.Int) error {
	var err error
	if a.IsNative() {
		err = s.treasury.Transfer(ctx, a.PaymentToken, bidder, a.Address, amount)
	} else {
		err = s.treasury.TransferFrom(ctx, a.Address, a.PaymentToken, bidder, a.Address, amount)
	}
	if err != nil {
		return transferFailed(err, "escrow bid of "+bidder.Hex())
	}
	return nil
}

// releaseAsset moves the asset from wherever it sits to to, acting as the
// instance. The asset may be in escrow or still with an approving seller.
func (s *AuctionService) releaseAsset(ctx context.Context, a *domain.Auction, to common.Address) error {
	owner, err := s.custodian.OwnerOf(ctx, a.NFT, a.TokenID)
	if err != nil {
		return transferFailed(err, "locate asset")
	}
	if owner == to {
		return nil
	}
	if err := s.custodian.TransferFrom(ctx, a.NFT, a.Address, owner, to, a.TokenID); err != nil {
		return transferFailed(err, "asset to "+to.Hex())
	}
	return nil
}

func transferFailed(err error, what string) error {
	if apperror.HasCode(err, apperror.CodeTransferFailed) {
		return err
	}
	return apperror.New(apperror.CodeTransferFailed, apperror.WithCause(err), apperror.WithContext(what))
}

func usdValue(amount *big.Int, decimals uint8, usdPrice *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, usdPrice)
	return out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}
