package api

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	auctionapp "github.com/fd1az/nft-auction/business/auction/app"
	auctiondomain "github.com/fd1az/nft-auction/business/auction/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/events"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

func addressParam(c *fiber.Ctx, name string) (common.Address, error) {
	raw := c.Params(name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, apperror.Validation(apperror.CodeInvalidFormat, name+" is not an address: "+raw)
	}
	return common.HexToAddress(raw), nil
}

func tokenIDParam(c *fiber.Ctx, name string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(c.Params(name), 10)
	if !ok || id.Sign() < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidFormat, name+" is not a token id")
	}
	return id, nil
}

func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	limit = c.QueryInt("limit", defaultPageSize)
	offset = c.QueryInt("offset", 0)
	if limit <= 0 || limit > maxPageSize || offset < 0 {
		return 0, 0, apperror.Validation(apperror.CodeInvalidInput, "limit must be in 1..500 and offset non-negative")
	}
	return limit, offset, nil
}

func (s *Server) getRegistry(c *fiber.Ctx) error {
	r, err := s.deps.Registry.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(newRegistryView(r))
}

func (s *Server) getAuctionsByUser(c *fiber.Ctx) error {
	seller, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	list, err := s.deps.Registry.GetAuctionsByUser(c.UserContext(), seller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"seller": seller, "auctions": list})
}

func (s *Server) listAuctions(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}
	f := auctionapp.ListFilter{Limit: limit, Offset: offset}

	if raw := c.Query("seller"); raw != "" {
		if !common.IsHexAddress(raw) {
			return apperror.Validation(apperror.CodeInvalidFormat, "seller is not an address: "+raw)
		}
		seller := common.HexToAddress(raw)
		f.Seller = &seller
	}

	switch state := auctiondomain.State(c.Query("state")); state {
	case "":
	case auctiondomain.StateActive, auctiondomain.StateEnded:
		f.State = state
	default:
		return apperror.Validation(apperror.CodeInvalidInput, "state must be active or ended")
	}

	list, err := s.deps.Auctions.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	out := make([]auctionView, 0, len(list))
	for _, snap := range list {
		out = append(out, newAuctionView(snap, s.deps.Currencies))
	}
	return c.JSON(fiber.Map{"auctions": out})
}

func (s *Server) getAuction(c *fiber.Ctx) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	snap, err := s.deps.Auctions.Get(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(newAuctionView(snap, s.deps.Currencies))
}

func (s *Server) getPriceInUSD(c *fiber.Ctx) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	price, err := s.deps.Auctions.GetPriceInUSD(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"auction": addr, "price": usdView(price)})
}

func (s *Server) getHighestBidInUSD(c *fiber.Ctx) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	value, err := s.deps.Auctions.HighestBidInUSD(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"auction": addr, "value": usdView(value)})
}

func (s *Server) getPendingReturn(c *fiber.Ctx) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	account, err := addressParam(c, "account")
	if err != nil {
		return err
	}

	snap, err := s.deps.Auctions.Get(c.UserContext(), addr)
	if err != nil {
		return err
	}
	pending, err := s.deps.Auctions.PendingReturn(c.UserContext(), addr, account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"auction": addr,
		"account": account,
		"amount":  newAmountView(s.deps.Currencies.Lookup(snap.PaymentToken), pending),
	})
}

func (s *Server) getToken(c *fiber.Ctx) error {
	collection, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	id, err := tokenIDParam(c, "id")
	if err != nil {
		return err
	}

	owner, err := s.deps.Custody.OwnerOf(c.UserContext(), collection, id)
	if err != nil {
		return err
	}
	uri, err := s.deps.Custody.TokenURI(c.UserContext(), collection, id)
	if err != nil {
		return err
	}
	return c.JSON(tokenView{Collection: collection, TokenID: id.String(), Owner: owner, TokenURI: uri})
}

func (s *Server) getBalance(c *fiber.Ctx) error {
	currency, err := addressParam(c, "currency")
	if err != nil {
		return err
	}
	account, err := addressParam(c, "account")
	if err != nil {
		return err
	}
	balance, err := s.deps.Balances.BalanceOf(c.UserContext(), currency, account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"account": account,
		"balance": newAmountView(s.deps.Currencies.Lookup(currency), balance),
	})
}

func (s *Server) listEvents(c *fiber.Ctx) error {
	limit, _, err := pageParams(c)
	if err != nil {
		return err
	}
	after := c.QueryInt("after", 0)
	if after < 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "after must be non-negative")
	}
	f := events.Filter{AfterSeq: uint64(after), Name: c.Query("name"), Limit: limit}

	if raw := c.Query("emitter"); raw != "" {
		if !common.IsHexAddress(raw) {
			return apperror.Validation(apperror.CodeInvalidFormat, "emitter is not an address: "+raw)
		}
		emitter := common.HexToAddress(raw)
		f.Emitter = &emitter
	}

	list, err := s.deps.Events.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	view := eventsView{Events: list, LastSeq: f.AfterSeq}
	if n := len(list); n > 0 {
		view.LastSeq = list[n-1].Seq
	}
	if view.Events == nil {
		view.Events = []events.Event{}
	}
	return c.JSON(view)
}

func (s *Server) listFeeds(c *fiber.Ctx) error {
	feeds := s.deps.Feeds.Feeds()
	out := make([]feedView, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedView{Address: f.Address, Description: f.Description, Native: f.Native})
	}
	return c.JSON(fiber.Map{"feeds": out})
}
