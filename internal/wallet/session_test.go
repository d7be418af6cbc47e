package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "0x00000000000000000000000000000000000000Aa"

func TestManagerWithoutProvider(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	_, ok := m.DetectProvider()
	assert.False(t, ok)

	_, err := m.CurrentAccounts(ctx)
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = m.RequestAccounts(ctx)
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = m.CurrentChainID(ctx)
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.ErrorIs(t, m.SwitchChain(ctx, "0x1"), ErrNoProvider)
	assert.ErrorIs(t, m.AddChain(ctx, DefaultChain), ErrNoProvider)
}

func TestManagerAccounts(t *testing.T) {
	p := NewMockProvider("0x1", testAccount)
	m := NewManager(p)
	ctx := context.Background()

	accounts, err := m.CurrentAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	accounts, err = m.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testAccount}, accounts)

	accounts, err = m.CurrentAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testAccount}, accounts)
}

func TestManagerRequestAccountsRejected(t *testing.T) {
	p := NewMockProvider("0x1", testAccount)
	p.Errors[MethodRequestAccounts] = NewProviderError(CodeUserRejected, "user rejected the request")

	_, err := NewManager(p).RequestAccounts(context.Background())
	require.Error(t, err)
	assert.True(t, IsUserRejected(err))
}

func TestManagerChainID(t *testing.T) {
	p := NewMockProvider("0xA86A")
	id, err := NewManager(p).CurrentChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xa86a", id)
}

func TestManagerSwitchAndAdd(t *testing.T) {
	p := NewMockProvider("0x1")
	m := NewManager(p)
	ctx := context.Background()

	err := m.SwitchChain(ctx, "0x13881")
	require.Error(t, err)
	assert.True(t, IsUnrecognizedChain(err))
	assert.Equal(t, CodeUnrecognizedChain, ErrorCode(errors.Wrap(err, "wrapped")))

	params := DefaultChain
	params.ChainID = "0x13881"
	require.NoError(t, m.AddChain(ctx, params))
	require.NoError(t, m.SwitchChain(ctx, "0x13881"))
	assert.Equal(t, "0x13881", p.ChainID)
}

func TestWatchChainChanged(t *testing.T) {
	p := NewMockProvider("0x1")
	m := NewManager(p)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		m.WatchChainChanged(ctx, func(id string) { got <- id })
		close(done)
	}()

	p.EmitChainChanged("0x13881")
	select {
	case id := <-got:
		assert.Equal(t, "0x13881", id)
	case <-time.After(time.Second):
		t.Fatal("chainChanged not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestProviderErrorCodes(t *testing.T) {
	assert.Equal(t, 0, ErrorCode(errors.New("plain")))
	assert.False(t, IsUserRejected(nil))
	err := NewProviderError(CodeUserRejected, "no %s", "thanks")
	assert.Equal(t, "provider error 4001: no thanks", err.Error())
}

func TestAddChainParamsValidate(t *testing.T) {
	valid := DefaultChain
	require.NoError(t, valid.Validate())

	noRPC := valid
	noRPC.RPCURLs = nil
	assert.Equal(t, CodeInvalidParams, ErrorCode(noRPC.Validate()))

	badDecimals := valid
	badDecimals.NativeCurrency.Decimals = 9
	assert.Equal(t, CodeInvalidParams, ErrorCode(badDecimals.Validate()))
}
