package core

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/catnames/catctl/internal/registry"
)

// Session is the wallet identity and network as last read from the provider.
// ChainLabel is always ResolveNetworkName(ChainID).
type Session struct {
	Account    string `json:"account"`
	ChainID    string `json:"chain_id"`
	ChainLabel string `json:"chain_label"`
}

func newSession(account, chainID string) Session {
	id := NormalizeChainID(chainID)
	return Session{Account: account, ChainID: id, ChainLabel: ResolveNetworkName(id)}
}

// Connected reports whether an account is authorized.
func (s Session) Connected() bool {
	return s.Account != ""
}

// OnTargetNetwork reports whether the wallet is on the required network.
func (s Session) OnTargetNetwork() bool {
	return s.ChainLabel != "" && s.ChainLabel == RequiredNetwork().DisplayName
}

// WalletLabel is the shortened account for headers.
func (s Session) WalletLabel() string {
	if !s.Connected() {
		return "Not Connected"
	}
	return ShortAddress(s.Account)
}

// NetworkLabel is the chain label, or the raw id for unknown chains.
func (s Session) NetworkLabel() string {
	switch {
	case s.ChainLabel != "":
		return s.ChainLabel
	case s.ChainID != "":
		return "Unknown network " + s.ChainID
	}
	return ""
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Mode is the form's mode.
type Mode int

const (
	ModeMint Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "mint"
}

// MintDraft is the user's pending input.
type MintDraft struct {
	Name   string `json:"name"`
	Record string `json:"record"`
	Mode   Mode   `json:"mode"`
}

// IsZero reports whether the draft is empty.
func (d MintDraft) IsZero() bool {
	return d == MintDraft{}
}

// State is the workflow state derived from the session and the operation in flight.
type State int

const (
	StateDisconnected State = iota
	StateNotOnTargetNetwork
	StateOnTargetNetwork
	StateMinting
	StateEditing
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateNotOnTargetNetwork:
		return "wrong-network"
	case StateOnTargetNetwork:
		return "ready"
	case StateMinting:
		return "minting"
	case StateEditing:
		return "editing"
	case StateRefreshing:
		return "refreshing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Stage is how far a mint got.
type Stage int

const (
	StageNone Stage = iota
	StageValidated
	StageRegistered
	// StageMintedWithoutRecord: the name is owned but setRecord did not succeed.
	// The draft is left in edit mode so UpdateDomain can finish the job.
	StageMintedWithoutRecord
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageValidated:
		return "validated"
	case StageRegistered:
		return "registered"
	case StageMintedWithoutRecord:
		return "minted-without-record"
	case StageComplete:
		return "complete"
	}
	return "none"
}

// MintResult reports a MintDomain call.
type MintResult struct {
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	Stage    Stage            `json:"stage"`
	Register registry.Outcome `json:"register"`
	Record   registry.Outcome `json:"record"`
}

// TxURL returns the explorer link for a transaction on the required network.
func TxURL(hash string) string {
	return RequiredNetwork().TxURL(hash)
}

// MarketplaceURL returns the marketplace page of the token at index.
func MarketplaceURL(base string, contract common.Address, index int) string {
	return fmt.Sprintf("%s/%s/%d", strings.TrimSuffix(base, "/"), contract.Hex(), index)
}

// FullName appends the top-level suffix.
func FullName(name, tld string) string {
	return name + tld
}
