// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// AuctionRow is one auction instance in the table.
type AuctionRow struct {
	Address    common.Address
	Seller     common.Address
	TokenID    string
	// PaymentToken is the zero address for the native currency.
	PaymentToken common.Address
	HighestBid string
	Bidder     common.Address
	USD        string
	EndTime    time.Time
	Ended      bool
	Winner     common.Address
}

// AuctionsComponent renders auctions, newest first.
type AuctionsComponent struct {
	rows    []AuctionRow
	index   map[common.Address]int
	maxRows int
	visible int
	offset  int
}

// NewAuctionsComponent creates a table keeping at most maxRows auctions and
// showing visible of them at a time.
func NewAuctionsComponent(maxRows, visible int) *AuctionsComponent {
	return &AuctionsComponent{
		index:   make(map[common.Address]int),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add inserts a new auction at the top.
func (a *AuctionsComponent) Add(row AuctionRow) {
	if _, ok := a.index[row.Address]; ok {
		a.Update(row.Address, func(r *AuctionRow) { *r = row })
		return
	}
	a.rows = append([]AuctionRow{row}, a.rows...)
	if len(a.rows) > a.maxRows {
		a.rows = a.rows[:a.maxRows]
	}
	a.reindex()
}

// Update applies fn to the row of addr. Unknown auctions are ignored, which
// happens when the feed was joined after their creation.
func (a *AuctionsComponent) Update(addr common.Address, fn func(*AuctionRow)) bool {
	i, ok := a.index[addr]
	if !ok {
		return false
	}
	fn(&a.rows[i])
	return true
}

// Get returns a copy of the row of addr.
func (a *AuctionsComponent) Get(addr common.Address) (AuctionRow, bool) {
	i, ok := a.index[addr]
	if !ok {
		return AuctionRow{}, false
	}
	return a.rows[i], true
}

// Len is the number of tracked auctions.
func (a *AuctionsComponent) Len() int {
	return len(a.rows)
}

func (a *AuctionsComponent) Clear() {
	a.rows = nil
	a.offset = 0
	a.reindex()
}

func (a *AuctionsComponent) ScrollUp() {
	if a.offset > 0 {
		a.offset--
	}
}

func (a *AuctionsComponent) ScrollDown() {
	if a.offset+a.visible < len(a.rows) {
		a.offset++
	}
}

func (a *AuctionsComponent) reindex() {
	a.index = make(map[common.Address]int, len(a.rows))
	for i, r := range a.rows {
		a.index[r.Address] = i
	}
}

// View renders the auctions table.
func (a *AuctionsComponent) View(now time.Time) string {
	if len(a.rows) == 0 {
		return "No auctions created yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	endedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	dueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	result := headerStyle.Render(fmt.Sprintf("AUCTIONS (%d)", len(a.rows))) + "\n"
	result += fmt.Sprintf("  %-12s %-6s %-18s %-12s %-14s %s\n", "Auction", "Token", "Highest bid", "Bidder", "USD", "Status")

	end := a.offset + a.visible
	if end > len(a.rows) {
		end = len(a.rows)
	}
	for _, row := range a.rows[a.offset:end] {
		var status string
		switch {
		case row.Ended && row.Winner == (common.Address{}):
			status = endedStyle.Render("ended, no bids")
		case row.Ended:
			status = endedStyle.Render("sold to " + short(row.Winner))
		case !now.Before(row.EndTime):
			status = dueStyle.Render("awaiting end")
		default:
			status = activeStyle.Render("ends in " + row.EndTime.Sub(now).Round(time.Second).String())
		}

		bid, bidder, usd := "-", "-", "-"
		if row.HighestBid != "" {
			bid, bidder = row.HighestBid, short(row.Bidder)
		}
		if row.USD != "" {
			usd = row.USD
		}

		result += fmt.Sprintf("  %-12s %-6s %-18s %-12s %-14s %s\n",
			short(row.Address), row.TokenID, bid, bidder, usd, status)
	}

	if len(a.rows) > a.visible {
		result += endedStyle.Render(fmt.Sprintf("  showing %d-%d of %d", a.offset+1, end, len(a.rows)))
	}
	return result
}

func short(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + ".." + h[len(h)-4:]
}
