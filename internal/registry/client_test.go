package registry

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractAddr = common.HexToAddress("0x72809fd489a5e7354dAC43bB2FedA3a6B40Ae538")

// fakeChain is an in-memory contract backend that answers registry calls.
type fakeChain struct {
	mu       sync.Mutex
	abi      abi.ABI
	names    []string
	records  map[string]string
	owners   map[string]common.Address
	failing  map[string]bool // method name -> receipt status 0
	callErr  error
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
}

func newFakeChain(t *testing.T) *fakeChain {
	parsed, err := RegistryMetaData.GetAbi()
	require.NoError(t, err)
	return &fakeChain{
		abi:      *parsed,
		records:  map[string]string{},
		owners:   map[string]common.Address{},
		failing:  map[string]bool{},
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeChain) decode(data []byte) (*abi.Method, []any, error) {
	m, err := f.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	return m, args, err
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return nil, f.callErr
	}
	m, args, err := f.decode(call.Data)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case MethodGetAllNames:
		return m.Outputs.Pack(f.names)
	case MethodRecords:
		return m.Outputs.Pack(f.records[args[0].(string)])
	case MethodDomains:
		return m.Outputs.Pack(f.owners[args[0].(string)])
	}
	return nil, errors.Errorf("unexpected call %s", m.Name)
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _, err := f.decode(tx.Data())
	if err != nil {
		return err
	}
	status := types.ReceiptStatusSuccessful
	if f.failing[m.Name] {
		status = types.ReceiptStatusFailed
	}
	f.sent = append(f.sent, tx)
	f.receipts[tx.Hash()] = &types.Receipt{
		TxHash:      tx.Hash(),
		Status:      status,
		BlockNumber: big.NewInt(int64(len(f.sent))),
		GasUsed:     21000,
	}
	return nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeChain) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeChain) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

// fakeConn signs with a throwaway key on chain 80001.
type fakeConn struct {
	chain *fakeChain
	opts  func() (*bind.TransactOpts, error)
}

func newFakeConn(t *testing.T, chain *fakeChain) *fakeConn {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &fakeConn{
		chain: chain,
		opts: func() (*bind.TransactOpts, error) {
			opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(80001))
			if err != nil {
				return nil, err
			}
			opts.GasPrice = big.NewInt(1_000_000_000)
			opts.GasLimit = 200_000
			return opts, nil
		},
	}
}

func (c *fakeConn) Backend(context.Context) (Backend, error) { return c.chain, nil }

func (c *fakeConn) TransactOpts(context.Context) (*bind.TransactOpts, error) { return c.opts() }

func newTestClient(t *testing.T) (*Client, *fakeChain) {
	chain := newFakeChain(t)
	client, err := New(contractAddr, newFakeConn(t, chain))
	require.NoError(t, err)
	return client, chain
}

func TestReads(t *testing.T) {
	client, chain := newTestClient(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	chain.names = []string{"cats", "dogs"}
	chain.records["cats"] = "ipfs://meow"
	chain.owners["cats"] = owner

	ctx := context.Background()
	names, err := client.ListAllNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "dogs"}, names)

	record, err := client.GetRecord(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://meow", record)

	record, err = client.GetRecord(ctx, "dogs")
	require.NoError(t, err)
	assert.Empty(t, record)

	got, err := client.GetOwner(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, owner, got)
	assert.Equal(t, contractAddr, client.Address())
}

func TestReadErrorIsWrapped(t *testing.T) {
	client, chain := newTestClient(t)
	chain.callErr = errors.New("connection refused")

	_, err := client.ListAllNames(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getAllNames call failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRegisterNameCarriesPayment(t *testing.T) {
	client, chain := newTestClient(t)
	value, _ := new(big.Int).SetString("300000000000000000", 10)

	pending, err := client.RegisterName(context.Background(), "cats", value)
	require.NoError(t, err)
	require.Len(t, chain.sent, 1)

	tx := chain.sent[0]
	assert.Equal(t, contractAddr, *tx.To())
	assert.Equal(t, 0, value.Cmp(tx.Value()))
	m, args, err := chain.decode(tx.Data())
	require.NoError(t, err)
	assert.Equal(t, MethodRegister, m.Name)
	assert.Equal(t, []any{"cats"}, args)

	out, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, tx.Hash().Hex(), out.Hash)
	assert.Equal(t, pending.Hash(), out.Hash)
	assert.Equal(t, uint64(1), out.BlockNumber)
}

func TestSetRecordFailedStatus(t *testing.T) {
	client, chain := newTestClient(t)
	chain.failing[MethodSetRecord] = true

	pending, err := client.SetRecord(context.Background(), "cats", "ipfs://meow")
	require.NoError(t, err)

	m, args, err := chain.decode(chain.sent[0].Data())
	require.NoError(t, err)
	assert.Equal(t, MethodSetRecord, m.Name)
	assert.Equal(t, []any{"cats", "ipfs://meow"}, args)
	assert.Equal(t, 0, chain.sent[0].Value().Sign())

	out, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Succeeded())
	assert.Equal(t, types.ReceiptStatusFailed, out.Status)
}

func TestWaitHonoursContext(t *testing.T) {
	chain := newFakeChain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000, To: &contractAddr})
	p := &PendingTx{tx: tx, backend: chain, method: MethodRegister}
	_, err := p.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
