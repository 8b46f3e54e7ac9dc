package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WizardResult holds answers collected by the init wizard.
type WizardResult struct {
	Network     string
	NetworkMode string
	PriceSource string
	MinimumUSD  string
	Cancelled   bool
}

type wizardStep int

const (
	stepNetwork wizardStep = iota
	stepMode
	stepPriceSource
	stepMinimum
	stepDone
)

var (
	wizardModes        = []string{"testnet", "mainnet"}
	wizardPriceSources = []string{"static", "chainlink", "coingecko"}
)

type wizardModel struct {
	step     wizardStep
	result   WizardResult
	networks []string
	cursor   int
	choices  []string
	input    string
}

func newWizardModel(networks []string, defaultMinimum string) wizardModel {
	return wizardModel{
		step:     stepNetwork,
		networks: networks,
		choices:  networks,
		result:   WizardResult{MinimumUSD: defaultMinimum},
	}
}

func (m wizardModel) Init() tea.Cmd { return nil }

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	inputMode := m.step == stepMinimum

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.result.Cancelled = true
		return m, tea.Quit
	case tea.KeyUp:
		if !inputMode && m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if !inputMode && m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if inputMode {
			if v := strings.TrimSpace(strings.TrimPrefix(m.input, "$")); v != "" {
				m.result.MinimumUSD = v
			}
		} else {
			m.applyChoice()
		}
		m.advance()
	case tea.KeyBackspace:
		if inputMode && m.input != "" {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		if inputMode {
			m.input += string(key.Runes)
		}
	}

	if m.step == stepDone {
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) advance() {
	m.step++
	m.cursor = 0
	switch m.step {
	case stepMode:
		m.choices = wizardModes
	case stepPriceSource:
		m.choices = wizardPriceSources
	case stepMinimum:
		m.choices = nil
		m.input = ""
	}
}

func (m *wizardModel) applyChoice() {
	if m.cursor >= len(m.choices) {
		return
	}
	choice := m.choices[m.cursor]
	switch m.step {
	case stepNetwork:
		m.result.Network = choice
	case stepMode:
		m.result.NetworkMode = choice
	case stepPriceSource:
		m.result.PriceSource = choice
	}
}

func (m wizardModel) View() string {
	var s string

	switch m.step {
	case stepNetwork:
		s = renderMenu("Select the network for price feeds:", m.choices, m.cursor)
	case stepMode:
		s = renderMenu("Select network mode:", m.choices, m.cursor)
	case stepPriceSource:
		s = renderMenu("Where should ETH/USD come from?", m.choices, m.cursor)
	case stepMinimum:
		s = StyleTitle.Render("Minimum contribution in USD") + "\n\n"
		s += StyleMeta.Render(fmt.Sprintf("Press Enter to keep $%s:", m.result.MinimumUSD)) + "\n"
		s += "> $" + StyleValue.Render(m.input) + "█\n"
	case stepDone:
		s = Success("Setup complete!") + "\n"
	}

	return StyleBorder.Render(s) + "\n"
}

func renderMenu(title string, items []string, cursor int) string {
	s := StyleTitle.Render(title) + "\n\n"
	for i, item := range items {
		icon := "  "
		style := lipgloss.NewStyle().Foreground(ColorValue)
		if i == cursor {
			icon = "▸ "
			style = StyleSelected
		}
		s += icon + style.Render(item) + "\n"
	}
	s += "\n" + StyleMeta.Render("↑/↓ navigate · Enter select · Esc cancel")
	return s
}

// RunWizard launches the interactive init wizard over the given networks.
func RunWizard(networks []string, defaultMinimum string) (*WizardResult, error) {
	p := tea.NewProgram(newWizardModel(networks, defaultMinimum))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard error: %w", err)
	}
	result := final.(wizardModel).result
	return &result, nil
}
