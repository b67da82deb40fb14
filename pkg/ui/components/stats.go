// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds ledger counters for display.
type Stats struct {
	Events      int64
	Auctions    int64
	Active      int64
	Ended       int64
	Bids        int64
	Withdrawals int64
	Upgrades    int64
	LastSeq     uint64
	Reconnects  int64
	Errors      int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Auctions: %s (%s active, %s ended)  │  Bids: %s  │  Withdrawals: %s  │  Upgrades: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Auctions)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Active)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Ended)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Bids)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Withdrawals)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Upgrades)),
		) +
		fmt.Sprintf("Events: %s  │  Last seq: %s  │  Reconnects: %s  │  Errors: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Events)),
			valueStyle.Render(fmt.Sprintf("#%d", s.stats.LastSeq)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Reconnects)),
			errorsDisplay,
		)
}
