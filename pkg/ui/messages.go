// Package ui provides the Bubble Tea TUI for the auction watcher.
package ui

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/events"
)

// Message types for TUI updates

// EventMsg carries one committed ledger event.
type EventMsg struct {
	Event events.Event
}

// SyncedMsg is sent once the feed has replayed the backlog.
type SyncedMsg struct {
	LastSeq uint64
}

// QuoteMsg carries the USD value of an auction's highest bid.
type QuoteMsg struct {
	Auction common.Address
	USD     string
}

// ConnectionStatusMsg is sent when the feed connection changes state.
type ConnectionStatusMsg struct {
	Name  string
	State string
	Error error
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that the feed connection should start.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}
