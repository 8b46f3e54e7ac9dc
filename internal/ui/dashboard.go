package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ContributorView is one contributor line of the ledger status.
type ContributorView struct {
	Address string
	Amount  string // ETH
	USD     string
}

// StatusView is a display-ready summary of a deployed ledger.
type StatusView struct {
	Network      string
	Contract     string
	Controller   string
	PriceSource  string
	Price        string // USD per ETH
	Minimum      string // ETH needed for the USD minimum at the current price
	MinimumUSD   string
	Balance      string // ETH held by the ledger
	Contributors []ContributorView
}

// RenderStatus renders the ledger summary block followed by the
// contributor table.
func RenderStatus(v *StatusView) string {
	var sb strings.Builder
	sb.WriteString(KeyValueBlock("Funding ledger", [][2]string{
		{"Network", v.Network},
		{"Contract", v.Contract},
		{"Controller", v.Controller},
		{"ETH/USD", "$" + v.Price + " (" + v.PriceSource + ")"},
		{"Minimum", v.Minimum + " ETH ($" + v.MinimumUSD + ")"},
		{"Balance", v.Balance + " ETH"},
		{"Contributors", fmt.Sprintf("%d", len(v.Contributors))},
	}))
	sb.WriteString("\n")

	if len(v.Contributors) == 0 {
		sb.WriteString(StyleMeta.Render("  no contributions yet") + "\n")
		return sb.String()
	}

	t := NewTable([]Column{
		{Title: "#", Width: 4},
		{Title: "Contributor", Width: 42},
		{Title: "Amount (ETH)", Width: 22, Right: true},
		{Title: "USD", Width: 12, Right: true},
	})
	for i, c := range v.Contributors {
		t.AddRow(Row{fmt.Sprintf("%d", i), c.Address, c.Amount, c.USD})
	}
	sb.WriteString(t.Render())
	return sb.String()
}

// dashboardModel is the Bubble Tea model for the live ledger dashboard.
type dashboardModel struct {
	view       *StatusView
	lastUpdate time.Time
	interval   time.Duration
	quitting   bool
	fetcher    func() (*StatusView, error)
	err        string
}

type tickMsg time.Time
type statusFetchedMsg struct{ view *StatusView }
type statusErrorMsg string

// NewDashboard creates a Bubble Tea program that refreshes the ledger
// status every interval.
func NewDashboard(interval time.Duration, fetcher func() (*StatusView, error)) *tea.Program {
	return tea.NewProgram(newDashboardModel(interval, fetcher))
}

func newDashboardModel(interval time.Duration, fetcher func() (*StatusView, error)) dashboardModel {
	return dashboardModel{interval: interval, fetcher: fetcher}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tick(m.interval))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tick(m.interval))

	case statusFetchedMsg:
		m.view = msg.view
		m.lastUpdate = time.Now()
		m.err = ""

	case statusErrorMsg:
		m.err = string(msg)
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("⚡ Live Funding Dashboard") + "\n")
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("Updated: %s · r refresh · q quit", updated)) + "\n\n")

	if m.err != "" {
		sb.WriteString(Err(trimErr(m.err)) + "\n")
	}

	if m.view == nil {
		sb.WriteString(StyleMeta.Render("Loading...") + "\n")
	} else {
		sb.WriteString(RenderStatus(m.view))
	}

	return sb.String()
}

func (m dashboardModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.fetcher()
		if err != nil {
			return statusErrorMsg(err.Error())
		}
		return statusFetchedMsg{view: v}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
