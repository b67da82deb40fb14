package app_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	auctionapp "github.com/fd1az/nft-auction/business/auction/app"
	auctiondomain "github.com/fd1az/nft-auction/business/auction/domain"
	auctionrepo "github.com/fd1az/nft-auction/business/auction/infra/gormrepo"
	custodyapp "github.com/fd1az/nft-auction/business/custody/app"
	custodyrepo "github.com/fd1az/nft-auction/business/custody/infra/gormrepo"
	oracleapp "github.com/fd1az/nft-auction/business/oracle/app"
	"github.com/fd1az/nft-auction/business/oracle/infra/static"
	paymentapp "github.com/fd1az/nft-auction/business/payment/app"
	paymentdomain "github.com/fd1az/nft-auction/business/payment/domain"
	paymentrepo "github.com/fd1az/nft-auction/business/payment/infra/gormrepo"
	"github.com/fd1az/nft-auction/business/registry/app"
	"github.com/fd1az/nft-auction/business/registry/domain"
	"github.com/fd1az/nft-auction/business/registry/infra/gormrepo"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/store"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000A0")
	seller   = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000C1")
	ethFeed  = common.HexToAddress("0x694AA1769357215DE4FAC081bf1f309aDC325306")
)

type RegistrySuite struct {
	suite.Suite
	ctx context.Context
	db  *store.DB

	clock    *clock.Manual
	custody  *custodyapp.CustodyService
	payment  *paymentapp.PaymentService
	auctions *auctionapp.AuctionService
	impls    *auctiondomain.ImplementationTable
	events   *events.Log
	svc      *app.RegistryService

	registry *domain.Registry
	nft      common.Address
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
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
	oracle.Register(ethFeed, static.New("ETH / USD", big.NewInt(2000_00000000), 8, s.clock))

	s.events, err = events.NewLog(db, events.NewBus(), s.clock)
	s.Require().NoError(err)

	aRepo, err := auctionrepo.New(db)
	s.Require().NoError(err)
	s.impls = auctiondomain.NewImplementationTable()
	s.auctions = auctionapp.NewAuctionService(auctionapp.Dependencies{
		Repo:            aRepo,
		Tx:              db,
		Custodian:       s.custody,
		Treasury:        s.payment,
		Oracle:          oracle,
		Currencies:      asset.DefaultRegistry(asset.ETH),
		Events:          s.events,
		Implementations: s.impls,
		Clock:           s.clock,
		Log:             log,
	})

	repo, err := gormrepo.New(db)
	s.Require().NoError(err)
	s.svc = app.NewRegistryService(app.Dependencies{
		Repo:            repo,
		Tx:              db,
		Auctions:        s.auctions,
		Implementations: s.impls,
		Custodian:       s.custody,
		Events:          s.events,
		Clock:           s.clock,
		Log:             log,
	})

	s.registry, err = s.svc.Deploy(s.ctx, owner, common.Address{}, ethFeed)
	s.Require().NoError(err)

	coll, err := s.custody.DeployCollection(s.ctx, seller, "MyNFT", "MNFT", "ipfs://collection/")
	s.Require().NoError(err)
	s.nft = coll.Address

	ids := make([]*big.Int, 0, 5)
	for i := int64(1); i <= 5; i++ {
		ids = append(ids, big.NewInt(i))
	}
	s.Require().NoError(s.custody.BatchMint(s.ctx, s.nft, seller, seller, ids))
	s.Require().NoError(s.custody.SetApprovalForAll(s.ctx, s.nft, seller, s.registry.Address, true))
}

func (s *RegistrySuite) TearDownTest() {
	s.db.Close()
}

func (s *RegistrySuite) create(id int64) common.Address {
	addr, err := s.svc.CreateAuction(s.ctx, seller, app.CreateAuctionRequest{
		NFT:      s.nft,
		TokenID:  big.NewInt(id),
		Duration: time.Hour,
	})
	s.Require().NoError(err)
	return addr
}

func (s *RegistrySuite) TestDeploy() {
	s.Equal(domain.Address(owner), s.registry.Address)
	s.Equal(auctiondomain.ImplementationAddress(auctiondomain.LogicV1Version), s.registry.Implementation)

	got, err := s.svc.Owner(s.ctx)
	s.Require().NoError(err)
	s.Equal(owner, got)

	feed, err := s.svc.NativePriceFeed(s.ctx)
	s.Require().NoError(err)
	s.Equal(ethFeed, feed)

	_, err = s.svc.Deploy(s.ctx, owner, common.Address{}, ethFeed)
	s.True(apperror.HasCode(err, apperror.CodeRegistryDeployed))
}

func (s *RegistrySuite) TestCreateAuctionsForOneSeller() {
	var created []common.Address
	for id := int64(1); id <= 4; id++ {
		created = append(created, s.create(id))
	}

	list, err := s.svc.GetAuctionsByUser(s.ctx, seller)
	s.Require().NoError(err)
	s.Require().Len(list, 4)
	s.Equal(created, list)

	for i, addr := range created {
		owner, err := s.custody.OwnerOf(s.ctx, s.nft, big.NewInt(int64(i+1)))
		s.Require().NoError(err)
		s.Equal(addr, owner, "asset escrowed in its auction")

		snap, err := s.auctions.Get(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal(seller, snap.Seller)
		s.Equal(ethFeed, snap.PriceFeed, "zero feed binds the native feed")
		s.Equal(s.registry.Implementation, snap.Implementation)
	}

	reg, err := s.svc.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(4), reg.Nonce)
}

func (s *RegistrySuite) TestGetAuctionsByUser_Empty() {
	list, err := s.svc.GetAuctionsByUser(s.ctx, stranger)
	s.Require().NoError(err)
	s.NotNil(list)
	s.Empty(list)
}

func (s *RegistrySuite) TestCreateAuction_EmitsEvent() {
	addr := s.create(1)

	list, err := s.events.List(s.ctx, events.Filter{Emitter: &s.registry.Address, Name: events.AuctionCreated})
	s.Require().NoError(err)
	s.Require().Len(list, 1)

	var p events.AuctionCreatedPayload
	s.Require().NoError(list[0].Decode(&p))
	s.Equal(addr, p.Auction)
	s.Equal(seller, p.Seller)
	s.Equal("1", p.TokenID)
	s.True(s.clock.Now().Add(time.Hour).Equal(p.EndTime))
}

func (s *RegistrySuite) TestCreateAuction_WithoutApproval() {
	s.Require().NoError(s.custody.SetApprovalForAll(s.ctx, s.nft, seller, s.registry.Address, false))

	_, err := s.svc.CreateAuction(s.ctx, seller, app.CreateAuctionRequest{
		NFT:      s.nft,
		TokenID:  big.NewInt(1),
		Duration: time.Hour,
	})
	s.True(apperror.HasCode(err, apperror.CodeNotAuthorized))

	list, err := s.svc.GetAuctionsByUser(s.ctx, seller)
	s.Require().NoError(err)
	s.Empty(list)

	reg, err := s.svc.Get(s.ctx)
	s.Require().NoError(err)
	s.Zero(reg.Nonce, "failed creation leaves the nonce alone")
}

func (s *RegistrySuite) TestCreateAuction_NotTheOwner() {
	_, err := s.svc.CreateAuction(s.ctx, stranger, app.CreateAuctionRequest{
		NFT:      s.nft,
		TokenID:  big.NewInt(1),
		Duration: time.Hour,
	})
	s.True(apperror.HasCode(err, apperror.CodeTransferFailed))
}

func (s *RegistrySuite) TestCreateAuction_Validation() {
	_, err := s.svc.CreateAuction(s.ctx, seller, app.CreateAuctionRequest{NFT: s.nft, TokenID: big.NewInt(1)})
	s.True(apperror.HasCode(err, apperror.CodeInvalidInput))
}

func (s *RegistrySuite) TestCreateAuction_TokenPaymentAndFeed() {
	usdc := common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	feed := common.HexToAddress("0x00000000000000000000000000000000000000F2")

	addr, err := s.svc.CreateAuction(s.ctx, seller, app.CreateAuctionRequest{
		NFT:          s.nft,
		TokenID:      big.NewInt(2),
		PaymentToken: usdc,
		PriceFeed:    feed,
		Duration:     time.Hour,
	})
	s.Require().NoError(err)

	snap, err := s.auctions.Get(s.ctx, addr)
	s.Require().NoError(err)
	s.Equal(usdc, snap.PaymentToken)
	s.Equal(feed, snap.PriceFeed)
}

// extendedEnd lets anyone finalise.
type extendedEnd struct{ auctiondomain.LogicV1 }

func (extendedEnd) Version() string { return "NFTAuction.v2" }

func (l extendedEnd) End(a *auctiondomain.Auction, _ common.Address, now time.Time) (auctiondomain.Settlement, error) {
	return l.LogicV1.End(a, a.Seller, now)
}

func (s *RegistrySuite) TestUpgradeImplementation() {
	before := s.create(1)

	v2 := s.impls.Deploy(extendedEnd{})
	s.Require().NoError(s.svc.UpgradeAuctionImplementation(s.ctx, owner, v2))

	current, err := s.svc.AuctionImplementation(s.ctx)
	s.Require().NoError(err)
	s.Equal(v2, current)

	after := s.create(2)

	old, err := s.auctions.Get(s.ctx, before)
	s.Require().NoError(err)
	s.Equal(auctiondomain.ImplementationAddress(auctiondomain.LogicV1Version), old.Implementation)

	fresh, err := s.auctions.Get(s.ctx, after)
	s.Require().NoError(err)
	s.Equal(v2, fresh.Implementation)

	s.clock.Advance(time.Hour)
	_, err = s.auctions.EndAuction(s.ctx, before, stranger)
	s.True(apperror.HasCode(err, apperror.CodeNotSeller))
	_, err = s.auctions.EndAuction(s.ctx, after, stranger)
	s.Require().NoError(err)

	list, err := s.events.List(s.ctx, events.Filter{Name: events.ImplementationUpgraded})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	var p events.ImplementationUpgradedPayload
	s.Require().NoError(list[0].Decode(&p))
	s.Equal(v2, p.Current)
}

func (s *RegistrySuite) TestUpgradeImplementation_Guards() {
	v2 := s.impls.Deploy(extendedEnd{})

	err := s.svc.UpgradeAuctionImplementation(s.ctx, stranger, v2)
	s.True(apperror.HasCode(err, apperror.CodeNotOwner))

	err = s.svc.UpgradeAuctionImplementation(s.ctx, owner, common.HexToAddress("0xdead"))
	s.True(apperror.HasCode(err, apperror.CodeInvalidImplementation))

	current, err := s.svc.AuctionImplementation(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.registry.Implementation, current)
}

func (s *RegistrySuite) TestTransferOwnership() {
	s.Require().NoError(s.svc.TransferOwnership(s.ctx, owner, stranger))

	v2 := s.impls.Deploy(extendedEnd{})
	err := s.svc.UpgradeAuctionImplementation(s.ctx, owner, v2)
	s.True(apperror.HasCode(err, apperror.CodeNotOwner))
	s.Require().NoError(s.svc.UpgradeAuctionImplementation(s.ctx, stranger, v2))
}

func (s *RegistrySuite) TestBidThroughCreatedAuction() {
	auction := s.create(3)
	bidder := common.HexToAddress("0x00000000000000000000000000000000000000B1")
	amount := big.NewInt(1e18)
	s.Require().NoError(s.payment.Mint(s.ctx, paymentdomain.Native, bidder, amount))

	s.Require().NoError(s.auctions.PlaceBid(s.ctx, auctionapp.BidRequest{
		Auction: auction, Bidder: bidder, Amount: amount, Value: amount,
	}))

	s.clock.Advance(time.Hour)
	settlement, err := s.auctions.EndAuction(s.ctx, auction, seller)
	s.Require().NoError(err)
	s.Equal(bidder, settlement.Winner)

	owner, err := s.custody.OwnerOf(s.ctx, s.nft, big.NewInt(3))
	s.Require().NoError(err)
	s.Equal(bidder, owner)
}
