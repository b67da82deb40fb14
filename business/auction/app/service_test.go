package app_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"

	"github.com/fd1az/nft-auction/business/auction/app"
	"github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/business/auction/infra/gormrepo"
	custodyapp "github.com/fd1az/nft-auction/business/custody/app"
	custodyrepo "github.com/fd1az/nft-auction/business/custody/infra/gormrepo"
	oracleapp "github.com/fd1az/nft-auction/business/oracle/app"
	"github.com/fd1az/nft-auction/business/oracle/infra/static"
	paymentapp "github.com/fd1az/nft-auction/business/payment/app"
	paymentdomain "github.com/fd1az/nft-auction/business/payment/domain"
	paymentrepo "github.com/fd1az/nft-auction/business/payment/infra/gormrepo"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/store"
)

var (
	seller  = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	bidder1 = common.HexToAddress("0x00000000000000000000000000000000000000B1")
	bidder2 = common.HexToAddress("0x00000000000000000000000000000000000000B2")
	usdc    = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	ethFeed = common.HexToAddress("0x694AA1769357215DE4FAC081bf1f309aDC325306")

	native = paymentdomain.Native
)

func ether(tenths int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tenths), big.NewInt(1e17))
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type AuctionSuite struct {
	suite.Suite
	ctx context.Context
	db  *store.DB

	clock   *clock.Manual
	custody *custodyapp.CustodyService
	payment *paymentapp.PaymentService
	ethUSD  *static.Feed
	events  *events.Log
	impls   *domain.ImplementationTable
	svc     *app.AuctionService

	nft    common.Address
	nonce  uint64
	nextID int64
}

func TestAuctionSuite(t *testing.T) {
	suite.Run(t, new(AuctionSuite))
}

func (s *AuctionSuite) SetupTest() {
	s.ctx = context.Background()
	log := logger.NewDiscard()
	s.clock = clock.NewManual(time.Unix(1_700_000_000, 0).UTC())

	db, err := store.OpenMemory(log)
	s.Require().NoError(err)
	s.db = db

	cRepo, err := custodyrepo.New(db)
	s.Require().NoError(err)
	s.custody = custodyapp.NewCustodyService(cRepo, db, log)

	pRepo, err := paymentrepo.New(db)
	s.Require().NoError(err)
	s.payment = paymentapp.NewPaymentService(pRepo, db, log)

	oracle := oracleapp.NewOracleService(ethFeed, time.Hour, s.clock, log)
	s.ethUSD = static.New("ETH / USD", big.NewInt(2000_00000000), 8, s.clock)
	oracle.Register(ethFeed, s.ethUSD)

	s.events, err = events.NewLog(db, events.NewBus(), s.clock)
	s.Require().NoError(err)

	currencies := asset.DefaultRegistry(asset.ETH)
	currencies.Register(asset.NewAsset(usdc, "USDC", "USD Coin", 6))

	repo, err := gormrepo.New(db)
	s.Require().NoError(err)

	s.impls = domain.NewImplementationTable()
	s.svc = app.NewAuctionService(app.Dependencies{
		Repo:            repo,
		Tx:              db,
		Custodian:       s.custody,
		Treasury:        s.payment,
		Oracle:          oracle,
		Currencies:      currencies,
		Events:          s.events,
		Implementations: s.impls,
		Clock:           s.clock,
		Log:             log,
	})

	coll, err := s.custody.DeployCollection(s.ctx, seller, "MyNFT", "MNFT", "ipfs://collection/")
	s.Require().NoError(err)
	s.nft = coll.Address

	for _, b := range []common.Address{bidder1, bidder2} {
		s.Require().NoError(s.payment.Mint(s.ctx, native, b, ether(10)))
		s.Require().NoError(s.payment.Mint(s.ctx, usdc, b, big.NewInt(1_000_000_000)))
	}
}

func (s *AuctionSuite) TearDownTest() {
	s.db.Close()
}

// start mints a fresh token to the seller, initializes an auction over it
// and approves the auction, like a standalone proxy deployment.
func (s *AuctionSuite) start(payment, impl common.Address) (common.Address, *big.Int) {
	s.nextID++
	id := big.NewInt(s.nextID)
	s.Require().NoError(s.custody.Mint(s.ctx, s.nft, seller, seller, id))

	addr := crypto.CreateAddress(seller, s.nonce)
	s.nonce++

	_, err := s.svc.Initialize(s.ctx, app.InitRequest{
		Auction:        addr,
		Implementation: impl,
		Caller:         seller,
		NFT:            s.nft,
		TokenID:        id,
		PaymentToken:   payment,
		Duration:       time.Hour,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.custody.Approve(s.ctx, s.nft, seller, addr, id))
	return addr, id
}

func (s *AuctionSuite) bid(auction, bidder common.Address, amount *big.Int) error {
	return s.svc.PlaceBid(s.ctx, app.BidRequest{Auction: auction, Bidder: bidder, Amount: amount, Value: amount})
}

func (s *AuctionSuite) balance(currency, account common.Address) *big.Int {
	b, err := s.payment.BalanceOf(s.ctx, currency, account)
	s.Require().NoError(err)
	return b
}

func (s *AuctionSuite) ownerOf(id *big.Int) common.Address {
	o, err := s.custody.OwnerOf(s.ctx, s.nft, id)
	s.Require().NoError(err)
	return o
}

func (s *AuctionSuite) pending(auction, account common.Address) *big.Int {
	p, err := s.svc.PendingReturn(s.ctx, auction, account)
	s.Require().NoError(err)
	return p
}

func (s *AuctionSuite) TestBidWithdrawEnd() {
	auction, id := s.start(native, common.Address{})

	s.Require().NoError(s.bid(auction, bidder1, ether(1)))
	s.Require().NoError(s.bid(auction, bidder2, ether(2)))

	snap, err := s.svc.Get(s.ctx, auction)
	s.Require().NoError(err)
	s.Equal(bidder2, snap.HighestBid.Bidder)
	s.Equal(ether(2), snap.HighestBid.Amount)
	s.Equal(ether(1), s.pending(auction, bidder1))

	paid, err := s.svc.Withdraw(s.ctx, auction, bidder1)
	s.Require().NoError(err)
	s.Equal(ether(1), paid)
	s.Equal(ether(10), s.balance(native, bidder1))
	s.Equal(0, s.pending(auction, bidder1).Sign())

	_, err = s.svc.Withdraw(s.ctx, auction, bidder1)
	s.True(apperror.HasCode(err, apperror.CodeNothingToWithdraw))

	s.clock.Advance(time.Hour + time.Second)
	settlement, err := s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)
	s.Equal(bidder2, settlement.Winner)

	s.Equal(bidder2, s.ownerOf(id))
	s.Equal(ether(2), s.balance(native, seller))
	s.Equal(0, s.balance(native, auction).Sign())

	snap, err = s.svc.Get(s.ctx, auction)
	s.Require().NoError(err)
	s.Equal(domain.StateEnded, snap.State)
}

func (s *AuctionSuite) TestEndAuctionGuards() {
	auction, _ := s.start(native, common.Address{})

	_, err := s.svc.EndAuction(s.ctx, auction, seller)
	s.True(apperror.HasCode(err, apperror.CodeAuctionNotYetEnded))

	s.clock.Advance(time.Hour)
	_, err = s.svc.EndAuction(s.ctx, auction, bidder1)
	s.True(apperror.HasCode(err, apperror.CodeNotSeller))

	_, err = s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)

	_, err = s.svc.EndAuction(s.ctx, auction, seller)
	s.True(apperror.HasCode(err, apperror.CodeAlreadyEnded))
}

func (s *AuctionSuite) TestBidRules() {
	auction, _ := s.start(native, common.Address{})

	s.Require().NoError(s.bid(auction, bidder1, ether(1)))
	s.True(apperror.HasCode(s.bid(auction, bidder2, ether(1)), apperror.CodeBidTooLow))

	s.Require().NoError(s.bid(auction, bidder2, ether(2)))
	s.Require().NoError(s.bid(auction, bidder1, ether(3)))
	s.Require().NoError(s.bid(auction, bidder2, ether(4)))

	// outbid twice: 0.1 + 0.3
	s.Equal(ether(4), s.pending(auction, bidder1))
	s.Equal(ether(2), s.pending(auction, bidder2))

	s.clock.Advance(time.Hour)
	s.True(apperror.HasCode(s.bid(auction, bidder1, ether(9)), apperror.CodeAuctionEnded))

	_, err := s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)

	// refunds stay open after the end
	paid, err := s.svc.Withdraw(s.ctx, auction, bidder1)
	s.Require().NoError(err)
	s.Equal(ether(4), paid)
}

func (s *AuctionSuite) TestNativeBidNeedsExactValue() {
	auction, _ := s.start(native, common.Address{})

	err := s.svc.PlaceBid(s.ctx, app.BidRequest{Auction: auction, Bidder: bidder1, Amount: ether(2), Value: ether(1)})
	s.True(apperror.HasCode(err, apperror.CodeInvalidBidValue))
}

func (s *AuctionSuite) TestInsufficientFundsLeavesNoTrace() {
	auction, _ := s.start(native, common.Address{})

	err := s.bid(auction, bidder1, ether(11))
	s.True(apperror.HasCode(err, apperror.CodeTransferFailed))

	snap, err := s.svc.Get(s.ctx, auction)
	s.Require().NoError(err)
	s.True(snap.HighestBid.IsZero())
	s.Equal(ether(10), s.balance(native, bidder1))

	list, err := s.events.List(s.ctx, events.Filter{Name: events.BidPlaced})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *AuctionSuite) TestNoBidsReturnsAssetToSeller() {
	auction, id := s.start(native, common.Address{})

	// move the asset into escrow first
	s.Require().NoError(s.custody.TransferFrom(s.ctx, s.nft, seller, seller, auction, id))
	s.Equal(auction, s.ownerOf(id))

	s.clock.Advance(2 * time.Hour)
	settlement, err := s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)
	s.False(settlement.HasWinner())

	s.Equal(seller, s.ownerOf(id))
	s.Equal(0, s.balance(native, seller).Sign())
}

func (s *AuctionSuite) TestTokenAuction() {
	auction, id := s.start(usdc, common.Address{})
	amount := big.NewInt(150_000_000)

	err := s.svc.PlaceBid(s.ctx, app.BidRequest{Auction: auction, Bidder: bidder1, Amount: amount})
	s.True(apperror.HasCode(err, apperror.CodeTransferFailed))

	s.Require().NoError(s.payment.Approve(s.ctx, usdc, bidder1, auction, amount))
	s.Require().NoError(s.svc.PlaceBid(s.ctx, app.BidRequest{Auction: auction, Bidder: bidder1, Amount: amount}))
	s.Equal(amount, s.balance(usdc, auction))

	usd, err := s.svc.HighestBidInUSD(s.ctx, auction)
	s.Require().NoError(err)
	// 150 USDC at the ETH feed price, 6 decimals
	s.Equal(e18(300_000), usd)

	s.clock.Advance(time.Hour)
	_, err = s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)
	s.Equal(bidder1, s.ownerOf(id))
	s.Equal(amount, s.balance(usdc, seller))
}

func (s *AuctionSuite) TestReentrantWithdrawPaysOnce() {
	auction, _ := s.start(native, common.Address{})
	s.Require().NoError(s.bid(auction, bidder1, ether(1)))
	s.Require().NoError(s.bid(auction, bidder2, ether(2)))

	var inner error
	calls := 0
	s.payment.RegisterRecipient(bidder1, func(ctx context.Context, r paymentdomain.Receipt) error {
		calls++
		if calls == 1 {
			_, inner = s.svc.Withdraw(ctx, auction, bidder1)
		}
		return nil
	})
	defer s.payment.UnregisterRecipient(bidder1)

	_, err := s.svc.Withdraw(s.ctx, auction, bidder1)
	s.Require().NoError(err)

	s.True(apperror.HasCode(inner, apperror.CodeNothingToWithdraw))
	s.Equal(ether(10), s.balance(native, bidder1))
	s.Equal(ether(2), s.balance(native, auction))
}

func (s *AuctionSuite) TestRejectingSellerRevertsEnd() {
	auction, id := s.start(native, common.Address{})
	s.Require().NoError(s.bid(auction, bidder1, ether(1)))
	s.clock.Advance(time.Hour)

	s.payment.RegisterRecipient(seller, func(context.Context, paymentdomain.Receipt) error {
		return errors.New("no thanks")
	})
	_, err := s.svc.EndAuction(s.ctx, auction, seller)
	s.True(apperror.HasCode(err, apperror.CodeTransferFailed))

	snap, err := s.svc.Get(s.ctx, auction)
	s.Require().NoError(err)
	s.False(snap.Ended)
	s.Equal(seller, s.ownerOf(id))

	s.payment.UnregisterRecipient(seller)
	_, err = s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)
	s.Equal(bidder1, s.ownerOf(id))
}

func (s *AuctionSuite) TestReentrantBidDuringEndIsRejected() {
	auction, _ := s.start(native, common.Address{})
	s.Require().NoError(s.bid(auction, bidder1, ether(1)))
	s.clock.Advance(time.Hour)

	var inner error
	s.payment.RegisterRecipient(seller, func(ctx context.Context, _ paymentdomain.Receipt) error {
		inner = s.bid(auction, bidder2, ether(5))
		return nil
	})
	defer s.payment.UnregisterRecipient(seller)

	_, err := s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)
	s.True(apperror.HasCode(inner, apperror.CodeAuctionEnded))
}

func (s *AuctionSuite) TestInitializeTwice() {
	auction, id := s.start(native, common.Address{})

	_, err := s.svc.Initialize(s.ctx, app.InitRequest{
		Auction:  auction,
		Caller:   bidder1,
		NFT:      s.nft,
		TokenID:  id,
		Duration: time.Hour,
	})
	s.True(apperror.HasCode(err, apperror.CodeAlreadyInitialized))
}

func (s *AuctionSuite) TestInitializeValidation() {
	_, err := s.svc.Initialize(s.ctx, app.InitRequest{
		Auction: common.HexToAddress("0x00000000000000000000000000000000000000E1"),
		Caller:  seller,
		NFT:     s.nft,
		TokenID: big.NewInt(1),
	})
	s.True(apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = s.svc.Initialize(s.ctx, app.InitRequest{
		Auction:        common.HexToAddress("0x00000000000000000000000000000000000000E1"),
		Implementation: bidder1,
		Caller:         seller,
		NFT:            s.nft,
		TokenID:        big.NewInt(1),
		Duration:       time.Hour,
	})
	s.True(apperror.HasCode(err, apperror.CodeInvalidImplementation))
}

func (s *AuctionSuite) TestUnknownAuction() {
	err := s.bid(common.HexToAddress("0x00000000000000000000000000000000000000E9"), bidder1, ether(1))
	s.True(apperror.HasCode(err, apperror.CodeAuctionNotFound))
}

func (s *AuctionSuite) TestPriceInUSD() {
	auction, _ := s.start(native, common.Address{})

	price, err := s.svc.GetPriceInUSD(s.ctx, auction)
	s.Require().NoError(err)
	s.Equal(e18(2000), price)

	s.ethUSD.SetPrice(big.NewInt(2500_00000000))
	price, err = s.svc.GetPriceInUSD(s.ctx, auction)
	s.Require().NoError(err)
	s.Equal(e18(2500), price)

	s.Require().NoError(s.bid(auction, bidder1, ether(2)))
	usd, err := s.svc.HighestBidInUSD(s.ctx, auction)
	s.Require().NoError(err)
	s.Equal(e18(500), usd)

	s.ethUSD.SetUpdatedAt(s.clock.Now())
	s.clock.Advance(2 * time.Hour)
	_, err = s.svc.GetPriceInUSD(s.ctx, auction)
	s.True(apperror.HasCode(err, apperror.CodeStalePrice))
}

// openEnd lets anyone finalise.
type openEnd struct{ domain.LogicV1 }

func (openEnd) Version() string { return "NFTAuction.open-end" }

func (l openEnd) End(a *domain.Auction, _ common.Address, now time.Time) (domain.Settlement, error) {
	return l.LogicV1.End(a, a.Seller, now)
}

func (s *AuctionSuite) TestInstancesKeepTheirImplementation() {
	v1, _ := s.start(native, common.Address{})
	v2impl := s.impls.Deploy(openEnd{})
	v2, _ := s.start(native, v2impl)

	s.clock.Advance(time.Hour)

	_, err := s.svc.EndAuction(s.ctx, v1, bidder1)
	s.True(apperror.HasCode(err, apperror.CodeNotSeller))

	_, err = s.svc.EndAuction(s.ctx, v2, bidder1)
	s.Require().NoError(err)

	snap, err := s.svc.Get(s.ctx, v1)
	s.Require().NoError(err)
	s.Equal(domain.ImplementationAddress(domain.LogicV1Version), snap.Implementation)
}

func (s *AuctionSuite) TestEventsInCommitOrder() {
	auction, _ := s.start(native, common.Address{})
	s.Require().NoError(s.bid(auction, bidder1, ether(1)))
	s.Require().NoError(s.bid(auction, bidder2, ether(2)))
	_, err := s.svc.Withdraw(s.ctx, auction, bidder1)
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)
	_, err = s.svc.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)

	list, err := s.events.List(s.ctx, events.Filter{Emitter: &auction})
	s.Require().NoError(err)

	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name)
	}
	s.Equal([]string{events.BidPlaced, events.BidPlaced, events.Withdrawn, events.AuctionEnded}, names)

	var ended events.AuctionEndedPayload
	s.Require().NoError(list[3].Decode(&ended))
	s.Equal(bidder2, ended.Winner)
	s.Equal(ether(2).String(), ended.Amount)
}

func (s *AuctionSuite) TestList() {
	a1, _ := s.start(native, common.Address{})
	s.clock.Advance(time.Minute)
	a2, _ := s.start(native, common.Address{})

	all, err := s.svc.List(s.ctx, app.ListFilter{Seller: &seller})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(a1, all[0].Address)
	s.Equal(a2, all[1].Address)

	s.clock.Advance(time.Hour)
	_, err = s.svc.EndAuction(s.ctx, a1, seller)
	s.Require().NoError(err)

	active, err := s.svc.List(s.ctx, app.ListFilter{State: domain.StateActive})
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(a2, active[0].Address)
}
