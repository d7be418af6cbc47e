package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catnames/catctl/internal/wallet"
)

func TestResolveNetworkName(t *testing.T) {
	tests := []struct {
		chainID string
		want    string
	}{
		{"0x1", "Ethereum Mainnet"},
		{"0x3", "Ropsten"},
		{"0x4", "Rinkeby"},
		{"0x5", "Goerli"},
		{"0x2a", "Kovan"},
		{"0x38", "BSC Mainnet"},
		{"0x61", "BSC Testnet"},
		{"0x89", "Polygon Mainnet"},
		{"0x13881", "Polygon Mumbai Testnet"},
		{"0xa86a", "AVAX Mainnet"},
		{"0xA86A", "AVAX Mainnet"},
		{"80001", "Polygon Mumbai Testnet"},
		{"0x539", ""},
		{"", ""},
		{"garbage", ""},
	}
	for _, tt := range tests {
		t.Run(tt.chainID, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveNetworkName(tt.chainID))
		})
	}
}

func TestNormalizeChainID(t *testing.T) {
	assert.Equal(t, "0x13881", NormalizeChainID("0x13881"))
	assert.Equal(t, "0x13881", NormalizeChainID(" 0X13881 "))
	assert.Equal(t, "0x13881", NormalizeChainID("80001"))
	assert.Equal(t, "", NormalizeChainID(""))
	assert.Equal(t, "nope", NormalizeChainID("NOPE"))
}

func TestRequiredNetwork(t *testing.T) {
	n := RequiredNetwork()
	assert.Equal(t, "0x13881", n.ChainID)
	assert.Equal(t, "Polygon Mumbai Testnet", n.DisplayName)
	assert.Equal(t, "https://rpc-mumbai.maticvigil.com/", n.RPCURL)
	assert.Equal(t, "https://mumbai.polygonscan.com/", n.ExplorerURL)
	assert.Equal(t, NativeCurrency{Name: "Mumbai Matic", Symbol: "MATIC", Decimals: 18}, n.NativeCurrency)
	assert.Equal(t, int64(80001), n.ChainIDBig().Int64())
	assert.Equal(t, "https://mumbai.polygonscan.com/tx/0xabc", n.TxURL("0xabc"))
}

func TestAddChainParams(t *testing.T) {
	p := RequiredNetwork().AddChainParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, "0x13881", p.ChainID)
	assert.Equal(t, "Polygon Mumbai Testnet", p.ChainName)
	assert.Equal(t, []string{"https://rpc-mumbai.maticvigil.com/"}, p.RPCURLs)
	assert.Equal(t, []string{"https://mumbai.polygonscan.com/"}, p.BlockExplorerURLs)
	assert.Equal(t, "MATIC", p.NativeCurrency.Symbol)
}

func TestListNetworksSorted(t *testing.T) {
	list := ListNetworks()
	require.Len(t, list, 10)
	assert.Equal(t, "0x1", list[0].ChainID)
	assert.Equal(t, "0x13881", list[len(list)-1].ChainID)
	for i := 1; i < len(list); i++ {
		assert.Negative(t, list[i-1].ChainIDBig().Cmp(list[i].ChainIDBig()))
	}
}

func TestGetNetwork(t *testing.T) {
	n, err := GetNetwork("0x89")
	require.NoError(t, err)
	assert.Equal(t, "Polygon Mainnet", n.DisplayName)

	n, err = GetNetwork("80001")
	require.NoError(t, err)
	assert.Equal(t, RequiredNetwork(), n)

	_, err = GetNetwork("0x539")
	assert.Error(t, err)
}

func TestEnsureNetwork(t *testing.T) {
	ctx := context.Background()

	t.Run("known chain switches", func(t *testing.T) {
		p := wallet.NewMockProvider("0x1")
		p.Known[RequiredChainID] = true
		require.NoError(t, EnsureNetwork(ctx, wallet.NewManager(p)))
		assert.Equal(t, RequiredChainID, p.ChainID)
		assert.Equal(t, 0, p.CallCount(wallet.MethodAddChain))
	})

	t.Run("unknown chain is added once", func(t *testing.T) {
		p := wallet.NewMockProvider("0x1")
		require.NoError(t, EnsureNetwork(ctx, wallet.NewManager(p)))
		assert.Equal(t, RequiredChainID, p.ChainID)
		assert.Equal(t, 1, p.CallCount(wallet.MethodSwitchChain))
		assert.Equal(t, 1, p.CallCount(wallet.MethodAddChain))
	})

	t.Run("add failure is not retried", func(t *testing.T) {
		p := wallet.NewMockProvider("0x1")
		p.Errors[wallet.MethodAddChain] = wallet.NewProviderError(wallet.CodeUserRejected, "nope")
		err := EnsureNetwork(ctx, wallet.NewManager(p))
		require.Error(t, err)
		assert.True(t, wallet.IsUserRejected(err))
		assert.Equal(t, 1, p.CallCount(wallet.MethodSwitchChain))
		assert.Equal(t, 1, p.CallCount(wallet.MethodAddChain))
		assert.Equal(t, "0x1", p.ChainID)
	})

	t.Run("other switch errors skip add", func(t *testing.T) {
		p := wallet.NewMockProvider("0x1")
		p.Errors[wallet.MethodSwitchChain] = wallet.NewProviderError(wallet.CodeUserRejected, "nope")
		err := EnsureNetwork(ctx, wallet.NewManager(p))
		require.Error(t, err)
		assert.Equal(t, 0, p.CallCount(wallet.MethodAddChain))
	})

	t.Run("no provider", func(t *testing.T) {
		assert.ErrorIs(t, EnsureNetwork(ctx, wallet.NewManager(nil)), ErrNoProvider)
	})
}
