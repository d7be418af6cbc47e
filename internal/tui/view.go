package tui

import (
	"fmt"
	"strings"

	"github.com/catnames/catctl/internal/core"
)

// maxRows is how many listing entries fit on screen at once.
const maxRows = 10

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	session := m.ctrl.Session()
	state := m.ctrl.State()
	cardWidth := min(m.width-4, 72)

	var b strings.Builder
	network := session.NetworkLabel()
	if session.ChainID == "" {
		network = "No network"
	}
	b.WriteString(RenderHeader(network, session.WalletLabel(), session.OnTargetNetwork(), m.width))
	b.WriteString("\n\n")

	switch {
	case m.approval != nil:
		b.WriteString(m.renderApproval(cardWidth))
	case state == core.StateDisconnected:
		b.WriteString(m.renderConnect(cardWidth))
	case state == core.StateNotOnTargetNetwork:
		b.WriteString(m.renderSwitch(cardWidth))
	default:
		b.WriteString(m.renderForm(cardWidth, state))
		b.WriteString("\n")
		b.WriteString(m.renderListing(cardWidth))
	}

	if len(m.txLinks) > 0 {
		b.WriteString("\n")
		for _, link := range m.txLinks {
			b.WriteString("  " + TextMuted.Render("tx ") + TextInfo.Render(link) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n")
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(m.status))
		case m.done:
			b.WriteString(successStyle.Render(m.status))
		default:
			b.WriteString(statusStyle.Render(m.status))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelpFooter(state))
	return b.String()
}

func (m Model) renderConnect(width int) string {
	body := TextNormal.Render("Connect a wallet to mint and manage "+m.opts.TLD+" names.") + "\n\n"
	if m.busy != "" {
		body += m.spinner.View() + " " + TextMuted.Render("Waiting for wallet...")
	} else {
		body += KeyHint("c", "Connect Wallet")
	}
	return Card("Welcome", body, width)
}

func (m Model) renderSwitch(width int) string {
	target := core.RequiredNetwork().DisplayName
	msg := fmt.Sprintf("This app only works on %s.\nYour wallet is on %s.", target, m.ctrl.Session().NetworkLabel())
	box := WarningBox("Wrong network", msg, width)
	if m.busy != "" {
		return box + "\n  " + m.spinner.View() + " " + TextMuted.Render("Switching network...")
	}
	return box + "\n  " + KeyHint("s", "Switch to "+target)
}

func (m Model) renderForm(width int, state core.State) string {
	draft := m.ctrl.Draft()
	title := "Mint a name"
	if draft.Mode == core.ModeEdit {
		title = "Edit record for " + core.FullName(draft.Name, m.opts.TLD)
	}

	nameLine := m.name.View() + TextMuted.Render(m.opts.TLD)
	rows := [][]string{
		{"Name", nameLine},
		{"Record", m.record.View()},
	}
	if draft.Mode == core.ModeMint && core.NameLength(draft.Name) >= core.MinNameLength {
		rows = append(rows, []string{"Price", core.PriceFor(draft.Name).String() + " " + core.RequiredNetwork().NativeCurrency.Symbol})
	}
	body := Table(rows, 0)

	switch state {
	case core.StateMinting:
		body += m.spinner.View() + " " + TextMuted.Render("Minting...")
	case core.StateEditing:
		body += m.spinner.View() + " " + TextMuted.Render("Updating record...")
	case core.StateRefreshing:
		body += m.spinner.View() + " " + TextMuted.Render("Refreshing names...")
	default:
		if draft.Mode == core.ModeEdit {
			body += KeyHints(KeyHint("enter", "Set record"), KeyHint("esc", "Cancel"))
		} else {
			body += KeyHint("enter", "Mint")
		}
	}

	if m.focus == FocusListing {
		return Card(title, body, width)
	}
	return CardFocused(title, body, width)
}

func (m Model) renderListing(width int) string {
	snap := m.ctrl.Listing()
	title := "Recently minted"
	if snap.Len() == 0 {
		return Card(title, TextMuted.Render("No names minted yet."), width)
	}

	start := 0
	if m.selected >= maxRows {
		start = m.selected - maxRows + 1
	}
	end := min(start+maxRows, snap.Len())

	nameWidth := 0
	for _, e := range snap.Entries[start:end] {
		nameWidth = max(nameWidth, len([]rune(core.FullName(e.Name, m.opts.TLD))))
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		e := snap.Entries[i]
		full := core.FullName(e.Name, m.opts.TLD)
		line := fmt.Sprintf("%s%s  %s",
			full,
			strings.Repeat(" ", nameWidth-len([]rune(full))),
			truncate(e.Record, max(width-nameWidth-12, 8)))
		if m.ctrl.CanEdit(e) {
			line += " " + TextAction.Render("✎")
		}

		cursor := "  "
		if i == m.selected && m.focus == FocusListing {
			cursor = TextAction.Render("> ")
			line = selectedRowStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	if snap.Len() > maxRows {
		b.WriteString(TextMuted.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, snap.Len())) + "\n")
	}

	if m.focus == FocusListing && m.selected < snap.Len() {
		e := snap.Entries[m.selected]
		b.WriteString("\n" + TextMuted.Render("owner ") + TextNormal.Render(e.Owner.Hex()))
		card := CardFocused(title, strings.TrimRight(b.String(), "\n"), width)
		if m.opts.MarketplaceURL == "" {
			return card
		}
		// Outside the card so the link is never wrapped.
		return card + "\n  " + TextMuted.Render("view ") + TextInfo.Render(core.MarketplaceURL(m.opts.MarketplaceURL, m.opts.Contract, e.Index))
	}
	return Card(title, strings.TrimRight(b.String(), "\n"), width)
}

func (m Model) renderApproval(width int) string {
	req := m.approval.req
	rows := [][]string{{"Request", req.String()}}
	if req.Value != nil && req.Value.Sign() > 0 {
		rows = append(rows, []string{"Value", core.FormatWei(req.Value) + " " + core.RequiredNetwork().NativeCurrency.Symbol})
	}
	body := Table(rows, 0) + "\n" + KeyHints(KeyHint("y", "Approve"), KeyHint("n", "Reject"))
	return CardFocused("Wallet", body, width)
}

func (m Model) renderHelpFooter(state core.State) string {
	var help string
	switch {
	case m.approval != nil:
		help = "y: approve • n/esc: reject"
	case state == core.StateDisconnected:
		help = "c: connect wallet • ctrl+r: reload • q: quit"
	case state == core.StateNotOnTargetNetwork:
		help = "s: switch network • ctrl+r: reload • q: quit"
	case m.focus == FocusListing:
		help = "↑/↓: select • e: edit record • r: refresh • tab: focus • esc: back • q: quit"
	default:
		help = "tab: focus • enter: submit • ctrl+r: refresh • ctrl+c: quit"
	}
	return helpStyle.Render(help)
}
