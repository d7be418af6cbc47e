package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// ApprovalKind identifies the prompt being shown.
type ApprovalKind string

const (
	ApproveConnect     ApprovalKind = "connect"
	ApproveAddChain    ApprovalKind = "add_chain"
	ApproveTransaction ApprovalKind = "transaction"
)

// ApprovalRequest is everything a user needs to decide on a wallet prompt.
type ApprovalRequest struct {
	Kind      ApprovalKind
	Account   string
	ChainID   string
	ChainName string
	To        string
	Value     *big.Int
	Summary   string
}

// String renders the request as a one-line prompt.
func (r ApprovalRequest) String() string {
	switch r.Kind {
	case ApproveConnect:
		return fmt.Sprintf("Connect account %s?", r.Account)
	case ApproveAddChain:
		return fmt.Sprintf("Add and switch to network %s (%s)?", r.ChainName, r.ChainID)
	default:
		return fmt.Sprintf("Sign transaction on %s: %s?", r.ChainID, r.Summary)
	}
}

// Approver answers wallet prompts. A false answer without error is a user rejection.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req ApprovalRequest) (bool, error)

// Approve calls f.
func (f ApproverFunc) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	return f(ctx, req)
}

// AutoApprover answers every prompt with Allow. Used for --yes and tests.
type AutoApprover struct {
	Allow bool
}

// Approve returns a.Allow.
func (a AutoApprover) Approve(context.Context, ApprovalRequest) (bool, error) {
	return a.Allow, nil
}

// TerminalApprover asks on a terminal and accepts y/yes.
type TerminalApprover struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalApprover prompts on stdin/stderr.
func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{In: os.Stdin, Out: os.Stderr}
}

// Approve prints the prompt and reads one line. Non-interactive input is refused.
func (a *TerminalApprover) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	if !term.IsTerminal(int(a.In.Fd())) {
		return false, errors.New("cannot prompt for approval: stdin is not a terminal (use --yes)")
	}
	fmt.Fprintf(a.Out, "%s [y/N]: ", req)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(a.In).ReadString('\n')
		answer <- line
	}()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answer:
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes", nil
	}
}
