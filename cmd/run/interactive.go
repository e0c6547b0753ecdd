package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/memchain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	addrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	fieldCaller = iota
	fieldValue
	fieldInput
	numFields
)

type modelState int

const (
	stateSelectAccount modelState = iota
	stateInputTx
	stateShowReceipt
)

type interactiveModel struct {
	err      error
	bc       *memchain.Memchain
	receipt  *memchain.Receipt
	accounts []chain.Address
	inputs   []textinput.Model
	caller   chain.Address
	gas      uint64
	gasPrice uint64
	selected int
	focusIdx int
	state    modelState
}

type receiptMsg struct {
	err     error
	receipt *memchain.Receipt
}

func newInteractiveModel(bc *memchain.Memchain, caller chain.Address, gas, gasPrice uint64) *interactiveModel {
	m := &interactiveModel{
		bc:       bc,
		caller:   caller,
		gas:      gas,
		gasPrice: gasPrice,
		state:    stateSelectAccount,
	}
	m.refresh()
	return m
}

func (m *interactiveModel) refresh() {
	m.accounts = m.bc.LastBlock().State().Addresses()
	if m.selected >= len(m.accounts) {
		m.selected = max(len(m.accounts)-1, 0)
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputTx {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectAccount && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectAccount && m.selected < len(m.accounts)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectAccount:
				if len(m.accounts) == 0 {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputTx
				return m, textinput.Blink
			case stateInputTx:
				return m, m.transact
			case stateShowReceipt:
				m.state = stateSelectAccount
				m.receipt = nil
				m.err = nil
				return m, nil
			}

		case "tab":
			if m.state == stateInputTx {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputTx:
				m.state = stateSelectAccount
				m.inputs = nil
				return m, nil
			case stateShowReceipt:
				m.state = stateSelectAccount
				m.receipt = nil
				m.err = nil
				return m, nil
			}
		}

	case receiptMsg:
		m.receipt = msg.receipt
		m.err = msg.err
		m.state = stateShowReceipt
		m.refresh()
		return m, nil
	}

	if m.state == stateInputTx {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	m.inputs = make([]textinput.Model, numFields)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Width = 66
		switch i {
		case fieldCaller:
			ti.Prompt = "caller: "
			ti.Placeholder = "address"
			if !m.caller.IsZero() {
				ti.SetValue(m.caller.Hex())
			}
		case fieldValue:
			ti.Prompt = "value:  "
			ti.Placeholder = "0"
		case fieldInput:
			ti.Prompt = "input:  "
			ti.Placeholder = "bytes"
		}
		m.inputs[i] = ti
	}
	m.focusIdx = fieldInput
	if m.caller.IsZero() {
		m.focusIdx = fieldCaller
	}
	m.inputs[m.focusIdx].Focus()
}

func (m *interactiveModel) transact() tea.Msg {
	caller, err := chain.ParseAddress(m.inputs[fieldCaller].Value())
	if err != nil {
		return receiptMsg{err: fmt.Errorf("caller: %w", err)}
	}
	value := chain.Balance{}
	if v := m.inputs[fieldValue].Value(); v != "" {
		if value, err = chain.ParseBalance(v); err != nil {
			return receiptMsg{err: fmt.Errorf("value: %w", err)}
		}
	}
	m.caller = caller

	callee := m.accounts[m.selected]
	input := []byte(m.inputs[fieldInput].Value())
	r := m.bc.LastBlock().Transact(context.Background(), caller, callee, caller, value, input, m.gas, m.gasPrice)
	return receiptMsg{receipt: r}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("BCFS Runner"))
	fmt.Fprintf(&b, " %s block %d\n\n", m.bc.Name(), m.bc.LastBlock().Number())

	switch m.state {
	case stateSelectAccount:
		if len(m.accounts) == 0 {
			b.WriteString("No accounts.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select an account to call:\n\n")
		for i, addr := range m.accounts {
			line := m.formatAccount(addr)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputTx:
		fmt.Fprintf(&b, "Calling %s\n\n", addrStyle.Render(m.accounts[m.selected].Hex()))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter send • esc back"))

	case stateShowReceipt:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			m.writeReceipt(&b)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatAccount(addr chain.Address) string {
	acct, ok := m.bc.LastBlock().Account(addr)
	if !ok {
		return addr.Hex()
	}
	kind := "eoa"
	if len(acct.Code) > 0 || acct.Main != nil {
		kind = "contract"
	}
	return fmt.Sprintf("%s %s %s", addrStyle.Render(addr.Hex()), dimStyle.Render(kind), acct.Balance)
}

func (m *interactiveModel) writeReceipt(b *strings.Builder) {
	r := m.receipt
	style := resultStyle
	if r.Reverted() {
		style = errorStyle
	}
	fmt.Fprintf(b, "Outcome:  %s\n", style.Render(r.Outcome.String()))
	fmt.Fprintf(b, "Gas used: %d\n", r.GasUsed)
	if len(r.Output) > 0 {
		fmt.Fprintf(b, "Output:   %q\n", r.Output)
	}
	for i, ev := range r.Events {
		fmt.Fprintf(b, "Event %d:  %d topics, data %x\n", i, len(ev.Topics), ev.Data)
	}

	acct, ok := m.bc.LastBlock().Account(r.Callee)
	if !ok || len(acct.Storage) == 0 {
		return
	}
	b.WriteString("\nStorage:\n")
	for _, k := range acct.Keys() {
		fmt.Fprintf(b, "  %s = %s\n", dimStyle.Render(fmt.Sprintf("%q", k)), fmt.Sprintf("%q", acct.Storage[k]))
	}
}

func runInteractive(bc *memchain.Memchain, caller chain.Address, gas, gasPrice uint64) error {
	p := tea.NewProgram(newInteractiveModel(bc, caller, gas, gasPrice), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
