package registry

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOnlyConn(t *testing.T) {
	chain := newFakeChain(t)
	chain.names = []string{"cats"}
	chain.records["cats"] = "meow"

	dials := 0
	conn := NewReadOnlyConn("http://node.invalid")
	conn.dial = func(_ context.Context, url string) (Backend, error) {
		dials++
		assert.Equal(t, "http://node.invalid", url)
		return chain, nil
	}

	client, err := New(common.HexToAddress("0x72809fd489a5e7354dAC43bB2FedA3a6B40Ae538"), conn)
	require.NoError(t, err)

	names, err := client.ListAllNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cats"}, names)
	record, err := client.GetRecord(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, "meow", record)
	assert.Equal(t, 1, dials, "backend is reused")

	_, err = client.SetRecord(context.Background(), "cats", "woof")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Empty(t, chain.sent)
}

func TestReadOnlyConnDialError(t *testing.T) {
	conn := NewReadOnlyConn("http://node.invalid")
	conn.dial = func(context.Context, string) (Backend, error) {
		return nil, errors.New("connection refused")
	}
	_, err := conn.Backend(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dial http://node.invalid")
}
