package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/wsconn"
)

// Sink forwards watcher callbacks into a running program.
type Sink struct {
	send func(tea.Msg)
}

// NewSink returns a sink delivering to Send.
func NewSink() *Sink {
	return &Sink{send: Send}
}

func (s *Sink) Event(e events.Event) {
	s.send(EventMsg{Event: e})
}

func (s *Sink) Synced(lastSeq uint64) {
	s.send(SyncedMsg{LastSeq: lastSeq})
}

func (s *Sink) Quote(auction common.Address, usd string) {
	s.send(QuoteMsg{Auction: auction, USD: usd})
}

func (s *Sink) State(state wsconn.State, err error) {
	s.send(ConnectionStatusMsg{Name: FeedConnection, State: string(state), Error: err})
}
