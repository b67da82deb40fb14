// Package events records ledger events and fans them out after commit.
package events

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Event names.
const (
	AuctionCreated         = "AuctionCreated"
	BidPlaced              = "BidPlaced"
	AuctionEnded           = "AuctionEnded"
	Withdrawn              = "Withdrawn"
	ImplementationUpgraded = "ImplementationUpgraded"
)

// Event is one committed ledger event. Seq is the global commit order.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Seq        uint64          `json:"seq"`
	Name       string          `json:"name"`
	Emitter    common.Address  `json:"emitter"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// AuctionCreatedPayload is emitted by the registry for every new instance.
type AuctionCreatedPayload struct {
	Auction        common.Address `json:"auction"`
	Seller         common.Address `json:"seller"`
	NFT            common.Address `json:"nft"`
	TokenID        string         `json:"tokenId"`
	PaymentToken   common.Address `json:"paymentToken"`
	Implementation common.Address `json:"implementation"`
	EndTime        time.Time      `json:"endTime"`
}

// BidPlacedPayload is emitted when a bid becomes the highest bid.
type BidPlacedPayload struct {
	Auction common.Address `json:"auction"`
	Bidder  common.Address `json:"bidder"`
	Amount  string         `json:"amount"`
}

// AuctionEndedPayload is emitted on finalisation. Winner is the zero address
// when nobody bid.
type AuctionEndedPayload struct {
	Auction common.Address `json:"auction"`
	Winner  common.Address `json:"winner"`
	Amount  string         `json:"amount"`
}

// WithdrawnPayload is emitted when a displaced bidder reclaims funds.
type WithdrawnPayload struct {
	Auction common.Address `json:"auction"`
	Account common.Address `json:"account"`
	Amount  string         `json:"amount"`
}

// ImplementationUpgradedPayload is emitted by the registry owner's upgrade.
type ImplementationUpgradedPayload struct {
	Previous common.Address `json:"previous"`
	Current  common.Address `json:"current"`
}
