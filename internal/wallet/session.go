package wallet

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNoProvider is returned by every Manager call when no wallet is injected.
var ErrNoProvider = errors.New("no wallet provider detected")

// Manager reads and requests the wallet's account and chain.
// A nil provider is a normal state meaning no wallet is installed.
type Manager struct {
	provider Provider
}

// NewManager creates a Manager around an injected provider (may be nil).
func NewManager(p Provider) *Manager {
	return &Manager{provider: p}
}

// DetectProvider returns the injected provider and whether one is present.
func (m *Manager) DetectProvider() (Provider, bool) {
	if m == nil || m.provider == nil {
		return nil, false
	}
	return m.provider, true
}

// CurrentAccounts returns the accounts the wallet has already authorized, without prompting.
func (m *Manager) CurrentAccounts(ctx context.Context) ([]string, error) {
	return m.accounts(ctx, MethodAccounts)
}

// RequestAccounts prompts the user to authorize an account.
func (m *Manager) RequestAccounts(ctx context.Context) ([]string, error) {
	accounts, err := m.accounts(ctx, MethodRequestAccounts)
	if err != nil {
		return nil, err
	}
	log.Info().Int("accounts", len(accounts)).Msg("Wallet accounts authorized")
	return accounts, nil
}

func (m *Manager) accounts(ctx context.Context, method string) ([]string, error) {
	p, ok := m.DetectProvider()
	if !ok {
		return nil, ErrNoProvider
	}
	raw, err := p.Request(ctx, RequestArguments{Method: method})
	if err != nil {
		return nil, errors.Wrap(err, method)
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s result", method)
	}
	return accounts, nil
}

// CurrentChainID returns the wallet's active chain as a lowercase hex string.
func (m *Manager) CurrentChainID(ctx context.Context) (string, error) {
	p, ok := m.DetectProvider()
	if !ok {
		return "", ErrNoProvider
	}
	raw, err := p.Request(ctx, RequestArguments{Method: MethodChainID})
	if err != nil {
		return "", errors.Wrap(err, MethodChainID)
	}
	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		return "", errors.Wrap(err, "failed to decode chain id")
	}
	return strings.ToLower(chainID), nil
}

// SwitchChain asks the wallet to switch to chainID. Callers check IsUnrecognizedChain on failure.
func (m *Manager) SwitchChain(ctx context.Context, chainID string) error {
	p, ok := m.DetectProvider()
	if !ok {
		return ErrNoProvider
	}
	_, err := p.Request(ctx, RequestArguments{
		Method: MethodSwitchChain,
		Params: []any{SwitchChainParams{ChainID: chainID}},
	})
	return err
}

// AddChain asks the wallet to add (and switch to) a chain.
func (m *Manager) AddChain(ctx context.Context, params AddChainParams) error {
	p, ok := m.DetectProvider()
	if !ok {
		return ErrNoProvider
	}
	_, err := p.Request(ctx, RequestArguments{
		Method: MethodAddChain,
		Params: []any{params},
	})
	return err
}

// WatchChainChanged calls fn for every chainChanged notification until ctx is done or the
// provider closes its channel. It blocks; run it in its own goroutine.
func (m *Manager) WatchChainChanged(ctx context.Context, fn func(chainID string)) {
	p, ok := m.DetectProvider()
	if !ok {
		return
	}
	ch := p.ChainChanged()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-ch:
			if !ok {
				return
			}
			log.Debug().Str("chain_id", id).Msg("chainChanged")
			fn(strings.ToLower(id))
		}
	}
}
