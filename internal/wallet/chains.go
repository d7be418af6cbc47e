package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// DefaultChain is the only chain a fresh wallet knows.
var DefaultChain = AddChainParams{
	ChainID:   "0x1",
	ChainName: "Ethereum Mainnet",
	RPCURLs:   []string{"https://cloudflare-eth.com"},
	NativeCurrency: NativeCurrency{
		Name:     "Ether",
		Symbol:   "ETH",
		Decimals: 18,
	},
	BlockExplorerURLs: []string{"https://etherscan.io/"},
}

type chainState struct {
	Current    string           `json:"current"`
	Chains     []AddChainParams `json:"chains"`
	Authorized []string         `json:"authorized"`
}

// ChainStore persists the chains a local wallet knows, the active chain and the authorized accounts.
// An empty path keeps everything in memory.
type ChainStore struct {
	mu    sync.Mutex
	path  string
	state chainState
}

// OpenChainStore loads the store at path, creating defaults when the file does not exist.
func OpenChainStore(path string) (*ChainStore, error) {
	s := &ChainStore{
		path: path,
		state: chainState{
			Current: DefaultChain.ChainID,
			Chains:  []AddChainParams{DefaultChain},
		},
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chain store")
	}
	var st chainState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if len(st.Chains) == 0 {
		st.Chains = []AddChainParams{DefaultChain}
	}
	if st.Current == "" {
		st.Current = st.Chains[0].ChainID
	}
	s.state = st
	return s, nil
}

// Current returns the active chain.
func (s *ChainStore) Current() AddChainParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.lookup(s.state.Current)
	return c
}

// Lookup returns a known chain.
func (s *ChainStore) Lookup(chainID string) (AddChainParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(chainID)
}

func (s *ChainStore) lookup(chainID string) (AddChainParams, bool) {
	for _, c := range s.state.Chains {
		if c.ChainID == chainID {
			return c, true
		}
	}
	return AddChainParams{}, false
}

// Add stores a chain, replacing any chain with the same id.
func (s *ChainStore) Add(c AddChainParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Chains {
		if s.state.Chains[i].ChainID == c.ChainID {
			s.state.Chains[i] = c
			return s.save()
		}
	}
	s.state.Chains = append(s.state.Chains, c)
	return s.save()
}

// SetCurrent makes a known chain active.
func (s *ChainStore) SetCurrent(chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(chainID); !ok {
		return NewProviderError(CodeUnrecognizedChain, "unrecognized chain %s", chainID)
	}
	s.state.Current = chainID
	return s.save()
}

// IsAuthorized reports whether account has been connected before.
func (s *ChainStore) IsAuthorized(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.state.Authorized {
		if strings.EqualFold(a, account) {
			return true
		}
	}
	return false
}

// Authorize records account as connected.
func (s *ChainStore) Authorize(account string) error {
	if s.IsAuthorized(account) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Authorized = append(s.state.Authorized, account)
	return s.save()
}

func (s *ChainStore) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrap(err, "failed to create chain store directory")
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal chain store")
	}
	return errors.Wrap(os.WriteFile(s.path, data, 0600), "failed to write chain store")
}

// normalizeChainID returns the canonical 0x-prefixed lowercase form of a hex chain id.
func normalizeChainID(id string) (string, error) {
	n, err := hexutil.DecodeBig(strings.ToLower(strings.TrimSpace(id)))
	if err != nil {
		return "", NewProviderError(CodeInvalidParams, "invalid chainId %q", id)
	}
	return hexutil.EncodeBig(n), nil
}
