// Package tui provides the Bubble Tea interface for catctl.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/catnames/catctl/internal/core"
)

// Version is set at build time via ldflags
var Version = "dev"

// Focus is the widget receiving key presses.
type Focus int

const (
	FocusName Focus = iota
	FocusRecord
	FocusListing
)

func (f Focus) next(delta int) Focus {
	const n = 3
	return Focus(((int(f)+delta)%n + n) % n)
}

// Options holds display settings.
type Options struct {
	TLD            string
	MarketplaceURL string
	Contract       common.Address
}

// Model is the Bubble Tea model
type Model struct {
	ctx  context.Context
	ctrl *core.Controller
	opts Options

	name    textinput.Model
	record  textinput.Model
	spinner spinner.Model
	focus   Focus

	// selected is the cursor into the listing snapshot.
	selected int

	width  int
	height int

	// busy names the operation in flight, "" when idle.
	busy     string
	status   string
	err      error
	// done marks status as the result of a confirmed write.
	done bool
	txLinks  []string
	approval *approvalMsg
}

// NewModel creates the model. Nothing touches the wallet until Init runs.
func NewModel(ctx context.Context, ctrl *core.Controller, opts Options) Model {
	if opts.TLD == "" {
		opts.TLD = ".cat"
	}

	name := textinput.New()
	name.Placeholder = "domain"
	name.CharLimit = 64
	name.Prompt = ""
	name.Focus()

	record := textinput.New()
	record.Placeholder = "What's your cat's name?"
	record.CharLimit = 256
	record.Prompt = ""

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorBrand)

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		opts:    opts,
		name:    name,
		record:  record,
		spinner: s,
		focus:   FocusName,
		busy:    opLoad,
	}
}

// Init loads the session and starts following chain changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.run(opLoad))
}

// setFocus moves key input to f.
func (m Model) setFocus(f Focus) Model {
	m.focus = f
	m.name.Blur()
	m.record.Blur()
	switch f {
	case FocusName:
		m.name.Focus()
	case FocusRecord:
		m.record.Focus()
	}
	return m
}

// syncDraft copies the controller's draft into the inputs when they disagree,
// e.g. after a mint cleared it or an edit prefilled it.
func (m Model) syncDraft() Model {
	d := m.ctrl.Draft()
	if m.name.Value() != d.Name {
		m.name.SetValue(d.Name)
	}
	if m.record.Value() != d.Record {
		m.record.SetValue(d.Record)
	}
	if n := m.ctrl.Listing().Len(); m.selected >= n {
		m.selected = max(n-1, 0)
	}
	return m
}
