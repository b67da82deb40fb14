package ui

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/nft-auction/internal/events"
)

var (
	t0          = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auctionAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	seller      = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	bidder      = common.HexToAddress("0x00000000000000000000000000000000000000B1")
)

func newModel() Model {
	m := New(nil)
	m.now = func() time.Time { return t0 }
	m.phase = PhaseDashboard
	// Wide enough that boxed lines never wrap.
	m.width = 240
	return m
}

func event(t *testing.T, seq uint64, name string, payload any) EventMsg {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return EventMsg{Event: events.Event{Seq: seq, Name: name, Emitter: auctionAddr, Payload: body, OccurredAt: t0}}
}

func update(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func ether(n int64) string {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18)).String()
}

func lifecycle(t *testing.T) []tea.Msg {
	return []tea.Msg{
		event(t, 1, events.AuctionCreated, events.AuctionCreatedPayload{
			Auction: auctionAddr, Seller: seller, TokenID: "7", EndTime: t0.Add(time.Hour),
		}),
		event(t, 2, events.BidPlaced, events.BidPlacedPayload{Auction: auctionAddr, Bidder: bidder, Amount: ether(2)}),
		event(t, 3, events.AuctionEnded, events.AuctionEndedPayload{Auction: auctionAddr, Winner: bidder, Amount: ether(2)}),
		event(t, 4, events.Withdrawn, events.WithdrawnPayload{Auction: auctionAddr, Account: seller, Amount: ether(1)}),
	}
}

func TestModel_AppliesLifecycle(t *testing.T) {
	m := update(newModel(), lifecycle(t)...)

	assert.Equal(t, int64(4), m.counters.Events)
	assert.Equal(t, uint64(4), m.counters.LastSeq)
	assert.Equal(t, int64(1), m.counters.Auctions)
	assert.Equal(t, int64(0), m.counters.Active)
	assert.Equal(t, int64(1), m.counters.Ended)
	assert.Equal(t, int64(1), m.counters.Bids)
	assert.Equal(t, int64(1), m.counters.Withdrawals)

	row, ok := m.auctions.Get(auctionAddr)
	require.True(t, ok)
	assert.Equal(t, "2 ETH", row.HighestBid)
	assert.True(t, row.Ended)
	assert.Equal(t, bidder, row.Winner)

	view := m.View()
	assert.Contains(t, view, "AUCTIONS (1)")
	assert.Contains(t, view, "sold to")
	assert.Contains(t, view, "withdrew 1 ETH")
}

func TestModel_QuoteAttachesToAuctionAndBid(t *testing.T) {
	m := update(newModel(), lifecycle(t)[:2]...)
	m = update(m, QuoteMsg{Auction: auctionAddr, USD: "4000.00 USD"})

	row, _ := m.auctions.Get(auctionAddr)
	assert.Equal(t, "4000.00 USD", row.USD)
	assert.Contains(t, m.View(), "4000.00 USD")
}

func TestModel_PauseHoldsEvents(t *testing.T) {
	m := newModel()
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	require.True(t, m.paused)

	m = update(m, lifecycle(t)[:2]...)
	assert.Equal(t, int64(0), m.counters.Events)
	assert.Len(t, m.pending, 2)
	assert.Contains(t, m.View(), "PAUSED (2 held)")

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Equal(t, int64(2), m.counters.Events)
	assert.Empty(t, m.pending)
}

func TestModel_ConnectionAndErrors(t *testing.T) {
	m := newModel()
	m = update(m,
		ConnectionStatusMsg{Name: FeedConnection, State: "connected"},
		ConnectionStatusMsg{Name: FeedConnection, State: "reconnecting", Error: errors.New("connection reset")},
		ConnectionStatusMsg{Name: FeedConnection, State: "reconnecting"},
		ConnectionStatusMsg{Name: FeedConnection, State: "connected"},
	)

	assert.Equal(t, int64(1), m.counters.Reconnects)
	assert.Equal(t, int64(1), m.counters.Errors)
	assert.True(t, m.status.Connected(FeedConnection))
	assert.Contains(t, m.View(), "connection reset")

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Empty(t, m.errors)
}

func TestModel_StartupUntilSynced(t *testing.T) {
	m := New(nil)
	m.now = func() time.Time { return t0 }
	m.welcomeStart = t0.Add(-WelcomeDuration)

	m = update(m, TickMsg{})
	assert.Equal(t, PhaseStartup, m.phase)
	assert.Contains(t, m.View(), "Replaying ledger events")

	m = update(m, SyncedMsg{LastSeq: 0})
	assert.Equal(t, PhaseDashboard, m.phase)
	assert.Contains(t, m.View(), "NFT Auction Watch")
}

func TestModel_UnknownAuctionFallsBackToNative(t *testing.T) {
	m := update(newModel(), lifecycle(t)[1])

	assert.Equal(t, 0, m.auctions.Len())
	assert.Equal(t, int64(1), m.counters.Bids)
	assert.Contains(t, m.View(), "bid 2 ETH")
}
