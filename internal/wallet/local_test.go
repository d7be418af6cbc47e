package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catnames/catctl/internal/registry"
)

var mumbai = AddChainParams{
	ChainID:           "0x13881",
	ChainName:         "Polygon Mumbai Testnet",
	RPCURLs:           []string{"https://rpc-mumbai.maticvigil.com/"},
	NativeCurrency:    NativeCurrency{Name: "Mumbai Matic", Symbol: "MATIC", Decimals: 18},
	BlockExplorerURLs: []string{"https://mumbai.polygonscan.com/"},
}

func newLocal(t *testing.T, approver Approver, opts ...LocalOption) (*LocalProvider, *ChainStore, string) {
	t.Helper()
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "chains.json")
	store, err := OpenChainStore(path)
	require.NoError(t, err)

	opts = append([]LocalOption{WithProbe(func(context.Context, string) (string, error) {
		return "0x13881", nil
	})}, opts...)
	p := NewLocalProvider(kp, approver, store, opts...)
	t.Cleanup(p.Close)
	return p, store, path
}

func request(t *testing.T, p Provider, method string, params ...any) (json.RawMessage, error) {
	t.Helper()
	return p.Request(context.Background(), RequestArguments{Method: method, Params: params})
}

func TestLocalRequestAccountsRejected(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: false})

	_, err := request(t, p, MethodRequestAccounts)
	require.Error(t, err)
	assert.True(t, IsUserRejected(err))

	raw, err := request(t, p, MethodAccounts)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestLocalRequestAccountsPersistsAuthorization(t *testing.T) {
	p, _, path := newLocal(t, AutoApprover{Allow: true})

	raw, err := request(t, p, MethodRequestAccounts)
	require.NoError(t, err)
	var accounts []string
	require.NoError(t, json.Unmarshal(raw, &accounts))
	assert.Equal(t, []string{p.Account().Hex()}, accounts)

	reopened, err := OpenChainStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.IsAuthorized(p.Account().Hex()))
}

func TestLocalStartsOnDefaultChain(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: true})

	raw, err := request(t, p, MethodChainID)
	require.NoError(t, err)
	assert.JSONEq(t, `"0x1"`, string(raw))
}

func TestLocalSwitchUnknownChain(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: true})

	_, err := request(t, p, MethodSwitchChain, SwitchChainParams{ChainID: "0x13881"})
	require.Error(t, err)
	assert.True(t, IsUnrecognizedChain(err))
}

func TestLocalAddChainSwitchesAndEmits(t *testing.T) {
	p, _, path := newLocal(t, AutoApprover{Allow: true})

	_, err := request(t, p, MethodAddChain, mumbai)
	require.NoError(t, err)

	raw, err := request(t, p, MethodChainID)
	require.NoError(t, err)
	assert.JSONEq(t, `"0x13881"`, string(raw))
	assert.Equal(t, "0x13881", <-p.ChainChanged())

	reopened, err := OpenChainStore(path)
	require.NoError(t, err)
	assert.Equal(t, "0x13881", reopened.Current().ChainID)

	_, err = request(t, p, MethodSwitchChain, SwitchChainParams{ChainID: "0x1"})
	require.NoError(t, err)
	assert.Equal(t, "0x1", <-p.ChainChanged())
}

func TestLocalAddChainRejected(t *testing.T) {
	p, store, _ := newLocal(t, AutoApprover{Allow: false})

	_, err := request(t, p, MethodAddChain, mumbai)
	require.Error(t, err)
	assert.True(t, IsUserRejected(err))
	_, known := store.Lookup("0x13881")
	assert.False(t, known)
}

func TestLocalAddChainProbeMismatch(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: true}, WithProbe(func(context.Context, string) (string, error) {
		return "0x89", nil
	}))

	_, err := request(t, p, MethodAddChain, mumbai)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidParams, ErrorCode(err))
}

func TestLocalAddChainInvalidParams(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: true})

	bad := mumbai
	bad.RPCURLs = nil
	_, err := request(t, p, MethodAddChain, bad)
	assert.Equal(t, CodeInvalidParams, ErrorCode(err))

	_, err = request(t, p, MethodAddChain)
	assert.Equal(t, CodeInvalidParams, ErrorCode(err))
}

func TestLocalUnsupportedMethod(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: true})
	_, err := request(t, p, "eth_sign")
	assert.Equal(t, CodeUnsupportedMethod, ErrorCode(err))
}

func TestLocalTransactOptsRequiresConnection(t *testing.T) {
	p, _, _ := newLocal(t, AutoApprover{Allow: true})
	_, err := p.TransactOpts(context.Background())
	assert.Equal(t, CodeUnauthorized, ErrorCode(err))
}

func TestLocalSignerAsksApprover(t *testing.T) {
	var asked atomic.Int32
	var allowTx atomic.Bool
	approver := ApproverFunc(func(_ context.Context, req ApprovalRequest) (bool, error) {
		if req.Kind != ApproveTransaction {
			return true, nil
		}
		asked.Add(1)
		return allowTx.Load(), nil
	})
	p, _, _ := newLocal(t, approver)
	_, err := request(t, p, MethodRequestAccounts)
	require.NoError(t, err)

	opts, err := p.TransactOpts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.Account(), opts.From)

	to := common.HexToAddress("0x72809fd489a5e7354dAC43bB2FedA3a6B40Ae538")
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000, To: &to, Value: big.NewInt(1)})

	_, err = opts.Signer(opts.From, tx)
	require.Error(t, err)
	assert.True(t, IsUserRejected(err))

	allowTx.Store(true)
	signed, err := opts.Signer(opts.From, tx)
	require.NoError(t, err)
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), signed)
	require.NoError(t, err)
	assert.Equal(t, p.Account(), sender)
	assert.Equal(t, int32(2), asked.Load())
}

func TestLocalBackendDialsCurrentChain(t *testing.T) {
	var dialed []string
	dial := WithDialer(func(_ context.Context, url string) (registry.Backend, error) {
		dialed = append(dialed, url)
		return nil, errors.New("offline")
	})
	p, _, _ := newLocal(t, AutoApprover{Allow: true}, dial)

	_, err := p.Backend(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")

	_, err = request(t, p, MethodAddChain, mumbai)
	require.NoError(t, err)
	_, _ = p.Backend(context.Background())

	assert.Equal(t, []string{DefaultChain.RPCURLs[0], mumbai.RPCURLs[0]}, dialed)
}
