package api

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	auctionapp "github.com/fd1az/nft-auction/business/auction/app"
	registrydomain "github.com/fd1az/nft-auction/business/registry/domain"
	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/events"
)

type amountView struct {
	Raw      string `json:"raw"`
	Display  string `json:"display"`
	Currency string `json:"currency"`
}

func newAmountView(a *asset.Asset, raw *big.Int) amountView {
	amt := asset.NewAmount(a, raw)
	return amountView{
		Raw:      amt.Raw().String(),
		Display:  amt.String(),
		Currency: a.Address().Hex(),
	}
}

func usdView(raw *big.Int) amountView {
	amt := asset.NewAmount(asset.USD, raw)
	return amountView{
		Raw:      amt.Raw().String(),
		Display:  amt.StringFixed(2),
		Currency: "USD",
	}
}

type bidView struct {
	Bidder common.Address `json:"bidder"`
	Amount amountView     `json:"amount"`
}

type auctionView struct {
	Address        common.Address `json:"address"`
	Implementation common.Address `json:"implementation"`
	Seller         common.Address `json:"seller"`
	NFT            common.Address `json:"nft"`
	TokenID        string         `json:"tokenId"`
	PaymentToken   common.Address `json:"paymentToken"`
	PriceFeed      common.Address `json:"priceFeed"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	State          string         `json:"state"`
	HighestBid     bidView        `json:"highestBid"`
}

func newAuctionView(s *auctionapp.Snapshot, currencies Currencies) auctionView {
	return auctionView{
		Address:        s.Address,
		Implementation: s.Implementation,
		Seller:         s.Seller,
		NFT:            s.NFT,
		TokenID:        s.TokenID.String(),
		PaymentToken:   s.PaymentToken,
		PriceFeed:      s.PriceFeed,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		State:          string(s.State),
		HighestBid: bidView{
			Bidder: s.HighestBid.Bidder,
			Amount: newAmountView(currencies.Lookup(s.PaymentToken), s.HighestBid.Amount),
		},
	}
}

type registryView struct {
	Address         common.Address `json:"address"`
	Owner           common.Address `json:"owner"`
	Implementation  common.Address `json:"auctionImplementation"`
	NativePriceFeed common.Address `json:"nativePriceFeed"`
	AuctionsCreated uint64         `json:"auctionsCreated"`
	DeployedAt      time.Time      `json:"deployedAt"`
}

func newRegistryView(r *registrydomain.Registry) registryView {
	return registryView{
		Address:         r.Address,
		Owner:           r.Owner,
		Implementation:  r.Implementation,
		NativePriceFeed: r.NativePriceFeed,
		AuctionsCreated: r.Nonce,
		DeployedAt:      r.DeployedAt,
	}
}

type tokenView struct {
	Collection common.Address `json:"collection"`
	TokenID    string         `json:"tokenId"`
	Owner      common.Address `json:"owner"`
	TokenURI   string         `json:"tokenUri"`
}

type feedView struct {
	Address     common.Address `json:"address"`
	Description string         `json:"description"`
	Native      bool           `json:"native"`
}

type eventsView struct {
	Events []events.Event `json:"events"`
	// LastSeq is where the next page starts.
	LastSeq uint64 `json:"lastSeq"`
}
