package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// BidRow is one accepted bid.
type BidRow struct {
	Time    time.Time
	Auction common.Address
	Bidder  common.Address
	Amount  string
	USD     string
}

// BidsComponent renders the most recent bids.
type BidsComponent struct {
	rows    []BidRow
	maxRows int
}

// NewBidsComponent creates a new bids component.
func NewBidsComponent(maxRows int) *BidsComponent {
	return &BidsComponent{maxRows: maxRows}
}

// Add records a bid at the top of the list.
func (b *BidsComponent) Add(row BidRow) {
	b.rows = append([]BidRow{row}, b.rows...)
	if len(b.rows) > b.maxRows {
		b.rows = b.rows[:b.maxRows]
	}
}

// SetQuote attaches a USD value to the latest bid on auction.
func (b *BidsComponent) SetQuote(auction common.Address, usd string) {
	for i := range b.rows {
		if b.rows[i].Auction == auction {
			b.rows[i].USD = usd
			return
		}
	}
}

func (b *BidsComponent) Clear() {
	b.rows = nil
}

// View renders the bids component.
func (b *BidsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	usdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	result := headerStyle.Render("RECENT BIDS") + "\n\n"
	if len(b.rows) == 0 {
		return result + dimStyle.Render("  Waiting for bids...")
	}

	result += fmt.Sprintf("  %-8s  %-12s  %-12s  %-18s  %s\n", "Time", "Auction", "Bidder", "Amount", "USD")
	result += dimStyle.Render("  "+strings.Repeat("─", 64)) + "\n"

	for _, row := range b.rows {
		usd := dimStyle.Render("...")
		if row.USD != "" {
			usd = usdStyle.Render(row.USD)
		}
		result += fmt.Sprintf("  %-8s  %-12s  %-12s  %-18s  %s\n",
			row.Time.Format("15:04:05"),
			short(row.Auction),
			short(row.Bidder),
			row.Amount,
			usd,
		)
	}
	return result
}
