// Package ui provides the Bubble Tea TUI for the auction watcher.
package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/pkg/ui/components"
)

// FeedConnection names the event feed in the status bar.
const FeedConnection = "Event feed"

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Connecting and replaying the backlog
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	auctions *components.AuctionsComponent
	bids     *components.BidsComponent
	stats    *components.StatsComponent
	status   *components.StatusComponent
	keys     KeyMap
	help     help.Model

	currencies *asset.Registry
	now        func() time.Time

	// Phase state
	phase        Phase
	welcomeStart time.Time
	startupTime  time.Time
	synced       bool

	// State
	ready      bool
	quitting   bool
	paused     bool
	pending    []events.Event // held back while paused
	width      int
	height     int
	counters   components.Stats
	lastUpdate time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)
	logs       []string
	activity   []string
	lastState  string
}

// New creates a new TUI model. currencies formats bid amounts.
func New(currencies *asset.Registry) Model {
	if currencies == nil {
		currencies = asset.DefaultRegistry(asset.ETH)
	}
	now := time.Now()
	m := Model{
		auctions:     components.NewAuctionsComponent(200, 12),
		bids:         components.NewBidsComponent(8),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent(),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		currencies:   currencies,
		now:          time.Now,
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupTime:  now,
		errors:       make([]ErrorEntry, 0, 3),
		logs:         make([]string, 0, 5),
		activity:     make([]string, 0, 6),
	}
	m.status.Update(components.ConnectionStatus{Name: FeedConnection, State: "disconnected"})
	return m
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.auctions.Clear()
			m.bids.Clear()
			m.activity = m.activity[:0]
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused {
				for _, ev := range m.pending {
					m.applyEvent(ev)
				}
				m.pending = nil
			}
		case key.Matches(msg, m.keys.Up):
			m.auctions.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.auctions.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && m.now().Sub(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case EventMsg:
		if m.paused {
			m.pending = append(m.pending, msg.Event)
			return m, nil
		}
		m.applyEvent(msg.Event)

	case SyncedMsg:
		m.synced = true
		if m.phase != PhaseWelcome {
			m.phase = PhaseDashboard
		}
		m.activity = addLine(m.activity, m.now(), fmt.Sprintf("Synced up to #%d", msg.LastSeq), 6)

	case QuoteMsg:
		m.bids.SetQuote(msg.Auction, msg.USD)
		m.auctions.Update(msg.Auction, func(r *components.AuctionRow) { r.USD = msg.USD })

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			State:      msg.State,
			LastSeq:    m.counters.LastSeq,
			LastUpdate: m.now(),
		})
		if msg.State == "reconnecting" && m.lastState != "reconnecting" {
			m.counters.Reconnects++
		}
		m.lastState = msg.State
		if msg.Error != nil && msg.State != "closed" {
			m.addError(msg.Error)
		}

	case ErrorMsg:
		m.addError(msg.Error)

	case LogMsg:
		m.logs = addLine(m.logs, m.now(), msg.Level+": "+msg.Message, 5)
	}

	m.stats.Update(m.counters)
	return m, nil
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	if m.synced {
		m.phase = PhaseDashboard
	}
	m.startupTime = m.now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) addError(err error) {
	m.counters.Errors++
	m.errors = append(m.errors, ErrorEntry{Message: err.Error(), Timestamp: m.now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

// applyEvent folds one ledger event into the dashboard state.
func (m *Model) applyEvent(ev events.Event) {
	m.counters.Events++
	m.counters.LastSeq = ev.Seq
	m.lastUpdate = m.now()

	var line string
	switch ev.Name {
	case events.AuctionCreated:
		var p events.AuctionCreatedPayload
		if err := ev.Decode(&p); err != nil {
			m.addError(err)
			return
		}
		m.auctions.Add(components.AuctionRow{
			Address:      p.Auction,
			Seller:       p.Seller,
			TokenID:      p.TokenID,
			PaymentToken: p.PaymentToken,
			EndTime:      p.EndTime,
		})
		m.counters.Auctions++
		m.counters.Active++
		line = fmt.Sprintf("%s listed token #%s in %s", shortAddr(p.Seller), p.TokenID, shortAddr(p.Auction))

	case events.BidPlaced:
		var p events.BidPlacedPayload
		if err := ev.Decode(&p); err != nil {
			m.addError(err)
			return
		}
		amount := m.formatAmount(p.Auction, p.Amount)
		m.auctions.Update(p.Auction, func(r *components.AuctionRow) {
			r.HighestBid = amount
			r.Bidder = p.Bidder
			r.USD = ""
		})
		m.bids.Add(components.BidRow{Time: ev.OccurredAt, Auction: p.Auction, Bidder: p.Bidder, Amount: amount})
		m.counters.Bids++
		line = fmt.Sprintf("%s bid %s on %s", shortAddr(p.Bidder), amount, shortAddr(p.Auction))

	case events.AuctionEnded:
		var p events.AuctionEndedPayload
		if err := ev.Decode(&p); err != nil {
			m.addError(err)
			return
		}
		m.auctions.Update(p.Auction, func(r *components.AuctionRow) {
			r.Ended = true
			r.Winner = p.Winner
		})
		m.counters.Active--
		m.counters.Ended++
		if p.Winner == (common.Address{}) {
			line = fmt.Sprintf("%s ended without bids", shortAddr(p.Auction))
		} else {
			line = fmt.Sprintf("%s won %s for %s", shortAddr(p.Winner), shortAddr(p.Auction), m.formatAmount(p.Auction, p.Amount))
		}

	case events.Withdrawn:
		var p events.WithdrawnPayload
		if err := ev.Decode(&p); err != nil {
			m.addError(err)
			return
		}
		m.counters.Withdrawals++
		line = fmt.Sprintf("%s withdrew %s from %s", shortAddr(p.Account), m.formatAmount(p.Auction, p.Amount), shortAddr(p.Auction))

	case events.ImplementationUpgraded:
		var p events.ImplementationUpgradedPayload
		if err := ev.Decode(&p); err != nil {
			m.addError(err)
			return
		}
		m.counters.Upgrades++
		line = fmt.Sprintf("Auction implementation upgraded to %s", shortAddr(p.Current))

	default:
		line = ev.Name
	}

	m.activity = addLine(m.activity, ev.OccurredAt, fmt.Sprintf("#%d %s", ev.Seq, line), 6)
}

// formatAmount renders a raw amount in the payment currency of auction.
// Auctions created before the watcher joined fall back to the native currency.
func (m *Model) formatAmount(auction common.Address, raw string) string {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return raw
	}
	var token common.Address
	if row, found := m.auctions.Get(auction); found {
		token = row.PaymentToken
	}
	return asset.NewAmount(m.currencies.Lookup(token), v).String()
}

// addLine appends a timestamped line and keeps the last max lines.
func addLine(lines []string, at time.Time, message string, max int) []string {
	lines = append(lines, fmt.Sprintf("[%s] %s", at.Format("15:04:05"), message))
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines
}

func shortAddr(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + ".." + h[len(h)-4:]
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	width := m.width
	if width == 0 {
		width = 120
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" NFT Auction Watch "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.auctions.View(m.now())

	var rightContent strings.Builder
	rightContent.WriteString(m.renderActivityFeed())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.bids.View())
	rightCol := rightContent.String()

	// Side by side if enough width
	if width > 100 {
		left := BoxStyle.Width(width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width - 4).Render(rightCol))
	}

	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := m.now().Sub(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
		b.WriteString(pauseStyle.Render(fmt.Sprintf("⏸ PAUSED (%d held)", len(m.pending))))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderActivityFeed renders the recent activity feed.
func (m Model) renderActivityFeed() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	bidStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activity) == 0 {
		sb.WriteString(mutedStyle.Render("  Waiting for events..."))
		return sb.String()
	}
	for _, line := range m.activity {
		if strings.Contains(line, " bid ") {
			sb.WriteString(bidStyle.Render("  " + line))
		} else {
			sb.WriteString(mutedStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	elapsed := m.now().Sub(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ███╗   ██╗███████╗████████╗     █████╗ ██╗   ██╗ ██████╗████████╗██╗ ██████╗ ███╗   ██╗
   ████╗  ██║██╔════╝╚══██╔══╝    ██╔══██╗██║   ██║██╔════╝╚══██╔══╝██║██╔═══██╗████╗  ██║
   ██╔██╗ ██║█████╗     ██║       ███████║██║   ██║██║        ██║   ██║██║   ██║██╔██╗ ██║
   ██║╚██╗██║██╔══╝     ██║       ██╔══██║██║   ██║██║        ██║   ██║██║   ██║██║╚██╗██║
   ██║ ╚████║██║        ██║       ██║  ██║╚██████╔╝╚██████╗   ██║   ██║╚██████╔╝██║ ╚████║
   ╚═╝  ╚═══╝╚═╝        ╚═╝       ╚═╝  ╚═╝ ╚═════╝  ╚═════╝   ╚═╝   ╚═╝ ╚═════╝ ╚═╝  ╚═══╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("                               W A T C H"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("                     Going once, going twice..."))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                          Connecting%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("                  Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen shows the feed connection and backlog replay.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)

	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[int(m.now().Sub(m.startupTime).Milliseconds()/200)%len(spinners)]

	step := func(name string, done bool, detail string) string {
		if done {
			return fmt.Sprintf("  %s %s %s\n", successStyle.Render("✓"), mutedStyle.Render(name), successStyle.Render(detail))
		}
		return fmt.Sprintf("  %s %s %s\n", connectingStyle.Render(spinner), mutedStyle.Render(name), connectingStyle.Render(detail))
	}

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  NFT Auction Watch"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	connected := m.status.Connected(FeedConnection)
	connDetail := "Connecting..."
	if connected {
		connDetail = "Ready"
	}
	sb.WriteString(step("Connecting to event feed", connected, connDetail))
	sb.WriteString(step("Replaying ledger events", m.synced, fmt.Sprintf("%d events", m.counters.Events)))

	sb.WriteString("\n")
	elapsed := m.now().Sub(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.status.View()}

	if m.counters.LastSeq > 0 {
		parts = append(parts, fmt.Sprintf("Seq: #%d", m.counters.LastSeq))
	}

	if !m.lastUpdate.IsZero() {
		ago := m.now().Sub(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and the feed
// connection should start. It is set by main.
var OnStartModules func()

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
