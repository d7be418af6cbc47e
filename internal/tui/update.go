package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/catnames/catctl/internal/core"
	"github.com/catnames/catctl/internal/registry"
	"github.com/catnames/catctl/internal/wallet"
)

// Operations run as commands.
const (
	opLoad    = "load"
	opConnect = "connect"
	opSwitch  = "switch"
	opMint    = "mint"
	opUpdate  = "update"
	opRefresh = "refresh"
)

// changedMsg is sent by the controller whenever its state changes.
type changedMsg struct{}

type opDoneMsg struct {
	op  string
	err error
}

type mintDoneMsg struct {
	res core.MintResult
	err error
}

type updateDoneMsg struct {
	name string
	out  registry.Outcome
	err  error
}

// approvalMsg is a wallet prompt waiting for y/n.
type approvalMsg struct {
	req   wallet.ApprovalRequest
	reply chan<- bool
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case changedMsg:
		return m.syncDraft(), nil

	case approvalMsg:
		m.approval = &msg
		return m, nil

	case opDoneMsg:
		m.busy = ""
		m = m.syncDraft()
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.err = nil
		m.done = false
		switch msg.op {
		case opConnect:
			m.status = "Wallet connected."
		case opSwitch:
			m.status = "Switched to " + core.RequiredNetwork().DisplayName + "."
		case opRefresh:
			m.status = fmt.Sprintf("Loaded %d names.", m.ctrl.Listing().Len())
		default:
			m.status = ""
		}
		return m, nil

	case mintDoneMsg:
		return m.handleMintDone(msg), nil

	case updateDoneMsg:
		m.busy = ""
		m = m.syncDraft()
		if msg.out.Hash != "" {
			m.txLinks = []string{core.TxURL(msg.out.Hash)}
		}
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.err = nil
		m.done = true
		m.status = fmt.Sprintf("Record updated for %s.", core.FullName(msg.name, m.opts.TLD))
		return m.setFocus(FocusName), nil
	}

	return m, nil
}

func (m Model) handleMintDone(msg mintDoneMsg) Model {
	m.busy = ""
	m = m.syncDraft()
	m.txLinks = nil
	for _, out := range []registry.Outcome{msg.res.Register, msg.res.Record} {
		if out.Hash != "" {
			m.txLinks = append(m.txLinks, core.TxURL(out.Hash))
		}
	}
	full := core.FullName(msg.res.Name, m.opts.TLD)

	if msg.res.Stage == core.StageMintedWithoutRecord {
		m.err = msg.err
		m.status = fmt.Sprintf("Minted %s but setting the record failed. Press enter to try again.", full)
		return m.setFocus(FocusRecord)
	}
	if msg.err != nil {
		return m.fail(msg.err)
	}
	m.err = nil
	m.done = true
	m.status = fmt.Sprintf("Minted %s for %s %s. Record set.", full, msg.res.Price, core.RequiredNetwork().NativeCurrency.Symbol)
	return m.setFocus(FocusName)
}

func (m Model) fail(err error) Model {
	m.err = err
	m.done = false
	m.status = core.Notice(err)
	return m
}

// run starts op against the controller in the background.
func (m Model) run(op string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	switch op {
	case opLoad:
		return func() tea.Msg { return opDoneMsg{op: op, err: ctrl.Start(ctx)} }
	case opConnect:
		return func() tea.Msg { return opDoneMsg{op: op, err: ctrl.ConnectWallet(ctx)} }
	case opSwitch:
		return func() tea.Msg { return opDoneMsg{op: op, err: ctrl.SwitchNetwork(ctx)} }
	case opRefresh:
		return func() tea.Msg {
			// On the required network an explicit refresh reports listing failures.
			if s := ctrl.Session(); s.Connected() && s.OnTargetNetwork() {
				return opDoneMsg{op: op, err: ctrl.RefreshListing(ctx)}
			}
			return opDoneMsg{op: op, err: ctrl.RefreshSession(ctx)}
		}
	case opMint:
		return func() tea.Msg {
			res, err := ctrl.MintDomain(ctx)
			return mintDoneMsg{res: res, err: err}
		}
	case opUpdate:
		name := ctrl.Draft().Name
		return func() tea.Msg {
			out, err := ctrl.UpdateDomain(ctx)
			return updateDoneMsg{name: name, out: out, err: err}
		}
	}
	return nil
}

// start marks op busy and returns its command. Only one operation runs at a time.
func (m Model) start(op string) (Model, tea.Cmd) {
	if m.busy != "" {
		return m.fail(core.ErrBusy), nil
	}
	log.Debug().Str("op", op).Msg("Starting operation")
	m.busy = op
	m.err = nil
	m.done = false
	switch op {
	case opConnect:
		m.status = "Waiting for wallet approval..."
	case opSwitch:
		m.status = "Switching network..."
	case opMint:
		m.status = fmt.Sprintf("Minting %s...", core.FullName(m.ctrl.Draft().Name, m.opts.TLD))
	case opUpdate:
		m.status = "Updating record..."
	case opRefresh:
		m.status = "Refreshing names..."
	}
	return m, m.run(op)
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.approval != nil {
		return m.handleApprovalKey(msg), nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		return m.start(opRefresh)
	}

	switch m.ctrl.State() {
	case core.StateDisconnected:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "c", "enter":
			return m.start(opConnect)
		}
		return m, nil
	case core.StateNotOnTargetNetwork:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "s", "enter":
			return m.start(opSwitch)
		}
		return m, nil
	}

	draft := m.ctrl.Draft()
	switch msg.String() {
	case "tab":
		return m.cycleFocus(1, draft), nil
	case "shift+tab":
		return m.cycleFocus(-1, draft), nil
	case "esc":
		if draft.Mode == core.ModeEdit {
			m.ctrl.CancelEdit()
			m.done = false
			m.status = "Edit cancelled."
			return m.syncDraft().setFocus(FocusName), nil
		}
		if m.focus == FocusListing {
			return m.setFocus(FocusName), nil
		}
		return m, nil
	}

	if m.focus == FocusListing {
		return m.handleListingKey(msg)
	}

	if msg.String() == "enter" {
		if draft.Mode == core.ModeEdit {
			return m.start(opUpdate)
		}
		return m.start(opMint)
	}

	// The form is frozen while a write is in flight; in edit mode the name is fixed.
	if m.ctrl.Loading() || (m.focus == FocusName && draft.Mode == core.ModeEdit) {
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == FocusName {
		m.name, cmd = m.name.Update(msg)
		m.ctrl.SetName(m.name.Value())
	} else {
		m.record, cmd = m.record.Update(msg)
		m.ctrl.SetRecord(m.record.Value())
	}
	return m, cmd
}

func (m Model) cycleFocus(delta int, draft core.MintDraft) Model {
	skip := func(f Focus) bool {
		return (f == FocusName && draft.Mode == core.ModeEdit) ||
			(f == FocusListing && m.ctrl.Listing().Len() == 0)
	}
	f := m.focus.next(delta)
	for i := 0; i < 2 && skip(f); i++ {
		f = f.next(delta)
	}
	return m.setFocus(f)
}

func (m Model) handleListingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Listing()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < snap.Len()-1 {
			m.selected++
		}
	case "r":
		return m.start(opRefresh)
	case "e", "enter":
		if m.selected < 0 || m.selected >= snap.Len() {
			return m, nil
		}
		e := snap.Entries[m.selected]
		if err := m.ctrl.EditRecord(e.Name); err != nil {
			return m.fail(err), nil
		}
		m.err = nil
		m.done = false
		m.status = fmt.Sprintf("Editing %s.", core.FullName(e.Name, m.opts.TLD))
		return m.syncDraft().setFocus(FocusRecord), nil
	}
	return m, nil
}

func (m Model) handleApprovalKey(msg tea.KeyMsg) Model {
	var answer bool
	switch msg.String() {
	case "y", "Y":
		answer = true
	case "n", "N", "esc", "ctrl+c":
	default:
		return m
	}
	log.Info().Str("kind", string(m.approval.req.Kind)).Bool("approved", answer).Msg("Wallet prompt answered")
	m.approval.reply <- answer
	m.approval = nil
	return m
}
