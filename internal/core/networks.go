// Package core provides the core logic for catctl.
// All TUI and CLI commands call functions in this package.
package core

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/catnames/catctl/internal/wallet"
)

// RequiredChainID is the single network every write is gated on.
const RequiredChainID = "0x13881"

// NativeCurrency describes the gas token of a network.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// NetworkDescriptor holds the static configuration for a network, keyed by hex chain id.
type NetworkDescriptor struct {
	ChainID        string
	DisplayName    string
	RPCURL         string
	NativeCurrency NativeCurrency
	ExplorerURL    string
}

// networks is the canonical registry of recognised chains.
var networks = map[string]NetworkDescriptor{
	"0x1": {
		ChainID:        "0x1",
		DisplayName:    "Ethereum Mainnet",
		RPCURL:         "https://cloudflare-eth.com",
		NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		ExplorerURL:    "https://etherscan.io/",
	},
	"0x3": {
		ChainID:        "0x3",
		DisplayName:    "Ropsten",
		NativeCurrency: NativeCurrency{Name: "Ropsten Ether", Symbol: "ETH", Decimals: 18},
		ExplorerURL:    "https://ropsten.etherscan.io/",
	},
	"0x4": {
		ChainID:        "0x4",
		DisplayName:    "Rinkeby",
		NativeCurrency: NativeCurrency{Name: "Rinkeby Ether", Symbol: "ETH", Decimals: 18},
		ExplorerURL:    "https://rinkeby.etherscan.io/",
	},
	"0x5": {
		ChainID:        "0x5",
		DisplayName:    "Goerli",
		NativeCurrency: NativeCurrency{Name: "Goerli Ether", Symbol: "ETH", Decimals: 18},
		ExplorerURL:    "https://goerli.etherscan.io/",
	},
	"0x2a": {
		ChainID:        "0x2a",
		DisplayName:    "Kovan",
		NativeCurrency: NativeCurrency{Name: "Kovan Ether", Symbol: "ETH", Decimals: 18},
		ExplorerURL:    "https://kovan.etherscan.io/",
	},
	"0x38": {
		ChainID:        "0x38",
		DisplayName:    "BSC Mainnet",
		RPCURL:         "https://bsc-dataseed.binance.org/",
		NativeCurrency: NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		ExplorerURL:    "https://bscscan.com/",
	},
	"0x61": {
		ChainID:        "0x61",
		DisplayName:    "BSC Testnet",
		RPCURL:         "https://data-seed-prebsc-1-s1.binance.org:8545/",
		NativeCurrency: NativeCurrency{Name: "BNB", Symbol: "tBNB", Decimals: 18},
		ExplorerURL:    "https://testnet.bscscan.com/",
	},
	"0x89": {
		ChainID:        "0x89",
		DisplayName:    "Polygon Mainnet",
		RPCURL:         "https://polygon-rpc.com/",
		NativeCurrency: NativeCurrency{Name: "Matic", Symbol: "MATIC", Decimals: 18},
		ExplorerURL:    "https://polygonscan.com/",
	},
	RequiredChainID: {
		ChainID:        RequiredChainID,
		DisplayName:    "Polygon Mumbai Testnet",
		RPCURL:         "https://rpc-mumbai.maticvigil.com/",
		NativeCurrency: NativeCurrency{Name: "Mumbai Matic", Symbol: "MATIC", Decimals: 18},
		ExplorerURL:    "https://mumbai.polygonscan.com/",
	},
	"0xa86a": {
		ChainID:        "0xa86a",
		DisplayName:    "AVAX Mainnet",
		RPCURL:         "https://api.avax.network/ext/bc/C/rpc",
		NativeCurrency: NativeCurrency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
		ExplorerURL:    "https://snowtrace.io/",
	},
}

// NormalizeChainID returns the canonical lowercase 0x-prefixed form of a chain id.
// Decimal ids ("80001") are accepted as well. Unparseable input is returned trimmed and lowercased.
func NormalizeChainID(chainID string) string {
	s := strings.ToLower(strings.TrimSpace(chainID))
	if s == "" {
		return ""
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("0x%x", n)
}

// ResolveNetworkName returns the display name of a chain, or "" when the chain is not recognised.
func ResolveNetworkName(chainID string) string {
	n, ok := networks[NormalizeChainID(chainID)]
	if !ok {
		return ""
	}
	return n.DisplayName
}

// RequiredNetwork returns the network mint and edit are gated on.
func RequiredNetwork() NetworkDescriptor {
	return networks[RequiredChainID]
}

// GetNetwork returns the descriptor for a chain id.
func GetNetwork(chainID string) (NetworkDescriptor, error) {
	n, ok := networks[NormalizeChainID(chainID)]
	if !ok {
		return NetworkDescriptor{}, errors.Errorf("unknown chain ID: %s", chainID)
	}
	return n, nil
}

// ListNetworks returns all recognised networks ordered by chain id.
func ListNetworks() []NetworkDescriptor {
	out := make([]NetworkDescriptor, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChainIDBig().Cmp(out[j].ChainIDBig()) < 0
	})
	return out
}

// ChainIDBig returns the chain id as a big integer.
func (n NetworkDescriptor) ChainIDBig() *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(n.ChainID, "0x"), 16)
	if !ok {
		return new(big.Int)
	}
	return v
}

// TxURL returns the block-explorer reference for a transaction hash.
func (n NetworkDescriptor) TxURL(hash string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return strings.TrimSuffix(n.ExplorerURL, "/") + "/tx/" + hash
}

// AddChainParams returns the wallet_addEthereumChain parameters for this network.
func (n NetworkDescriptor) AddChainParams() wallet.AddChainParams {
	p := wallet.AddChainParams{
		ChainID:   n.ChainID,
		ChainName: n.DisplayName,
		NativeCurrency: wallet.NativeCurrency{
			Name:     n.NativeCurrency.Name,
			Symbol:   n.NativeCurrency.Symbol,
			Decimals: n.NativeCurrency.Decimals,
		},
	}
	if n.RPCURL != "" {
		p.RPCURLs = []string{n.RPCURL}
	}
	if n.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{n.ExplorerURL}
	}
	return p
}

// EnsureNetwork asks the wallet to switch to the required network. When the wallet does not know
// the chain (4902) it asks the wallet to add it once. Nothing is retried.
func EnsureNetwork(ctx context.Context, m *wallet.Manager) error {
	if _, ok := m.DetectProvider(); !ok {
		return ErrNoProvider
	}

	required := RequiredNetwork()
	err := m.SwitchChain(ctx, required.ChainID)
	if err == nil {
		return nil
	}
	if !wallet.IsUnrecognizedChain(err) {
		log.Warn().Err(err).Str("chain_id", required.ChainID).Msg("Switch network failed")
		return errors.Wrap(err, "failed to switch network")
	}

	log.Info().Str("chain_id", required.ChainID).Msg("Chain unknown to wallet, requesting add")
	if err := m.AddChain(ctx, required.AddChainParams()); err != nil {
		log.Warn().Err(err).Str("chain_id", required.ChainID).Msg("Add network failed")
		return errors.Wrap(err, "failed to add network")
	}
	return nil
}
