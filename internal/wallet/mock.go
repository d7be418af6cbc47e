package wallet

import (
	"context"
	"encoding/json"
	"sync"
)

// MockProvider is a scriptable Provider for tests.
type MockProvider struct {
	mu       sync.Mutex
	Accounts []string
	// Authorized controls whether eth_accounts returns Accounts without a prompt.
	Authorized bool
	ChainID    string
	// Known chains accepted by wallet_switchEthereumChain; others fail with 4902.
	Known map[string]bool
	// Errors forces a method to fail.
	Errors map[string]error
	Calls  []RequestArguments
	ch     chan string
}

// NewMockProvider creates a mock wallet on chainID that knows only that chain.
func NewMockProvider(chainID string, accounts ...string) *MockProvider {
	return &MockProvider{
		Accounts: accounts,
		ChainID:  chainID,
		Known:    map[string]bool{chainID: true},
		Errors:   map[string]error{},
		ch:       make(chan string, 16),
	}
}

// ChainChanged implements Provider.
func (m *MockProvider) ChainChanged() <-chan string {
	return m.ch
}

// EmitChainChanged moves the mock to chainID and notifies listeners.
func (m *MockProvider) EmitChainChanged(chainID string) {
	m.mu.Lock()
	m.ChainID = chainID
	m.mu.Unlock()
	m.ch <- chainID
}

// CallCount returns how many times method was requested.
func (m *MockProvider) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Request implements Provider.
func (m *MockProvider) Request(_ context.Context, args RequestArguments) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, args)
	if err, ok := m.Errors[args.Method]; ok {
		return nil, err
	}

	var result any
	switch args.Method {
	case MethodRequestAccounts:
		m.Authorized = true
		result = m.Accounts
	case MethodAccounts:
		if m.Authorized {
			result = m.Accounts
		} else {
			result = []string{}
		}
	case MethodChainID:
		result = m.ChainID
	case MethodSwitchChain:
		var p SwitchChainParams
		if err := decodeParam(args, &p); err != nil {
			return nil, err
		}
		if !m.Known[p.ChainID] {
			return nil, NewProviderError(CodeUnrecognizedChain, "unrecognized chain %s", p.ChainID)
		}
		m.ChainID = p.ChainID
	case MethodAddChain:
		var p AddChainParams
		if err := decodeParam(args, &p); err != nil {
			return nil, err
		}
		m.Known[p.ChainID] = true
		m.ChainID = p.ChainID
	default:
		return nil, NewProviderError(CodeUnsupportedMethod, "unsupported %s", args.Method)
	}
	return json.Marshal(result)
}
