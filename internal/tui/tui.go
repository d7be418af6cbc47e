package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/catnames/catctl/internal/core"
	"github.com/catnames/catctl/internal/wallet"
)

// Bridge connects background wallet and controller activity to a running program.
// It answers wallet prompts through the interface and forwards state changes.
// Before Attach, prompts are refused and changes are dropped.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewBridge creates an unattached Bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes messages to send, usually (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) sender() func(tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.send
}

// Notify tells the interface to redraw. It never blocks, so the controller may call it
// while the program is handling a key press.
func (b *Bridge) Notify() {
	if send := b.sender(); send != nil {
		go send(changedMsg{})
	}
}

// Approve implements wallet.Approver by showing req and waiting for y/n.
func (b *Bridge) Approve(ctx context.Context, req wallet.ApprovalRequest) (bool, error) {
	send := b.sender()
	if send == nil {
		return false, errors.New("no interface attached to answer wallet prompts")
	}
	reply := make(chan bool, 1)
	go send(approvalMsg{req: req, reply: reply})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ok := <-reply:
		return ok, nil
	}
}

// Run starts the TUI application and blocks until the user quits.
func Run(ctx context.Context, ctrl *core.Controller, bridge *Bridge, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p.Send)
	defer bridge.Attach(nil)

	_, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "tui failed")
	}
	return nil
}
