package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyReader struct {
	failures int
	err      error
	calls    int
}

func (r *flakyReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, r.err
	}
	return []byte{0x01}, nil
}

func (r *flakyReader) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("insufficient funds for gas * price + value")
}

func (r *flakyReader) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, r.err
	}
	return big.NewInt(42), nil
}

func (r *flakyReader) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func TestRetryReaderRetriesTransport(t *testing.T) {
	backend := &flakyReader{failures: 2, err: errors.New("connection refused")}
	reader := NewRetryReader(backend, 2, time.Millisecond)

	ret, err := reader.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, ret)
	assert.Equal(t, 3, backend.calls)
}

func TestRetryReaderGivesUp(t *testing.T) {
	backend := &flakyReader{failures: 5, err: errors.New("connection refused")}
	reader := NewRetryReader(backend, 1, time.Millisecond)

	_, err := reader.BalanceAt(context.Background(), common.Address{}, nil)
	require.Error(t, err)
	assert.Equal(t, 2, backend.calls)
	var tagged *Error
	assert.True(t, errors.As(err, &tagged))
}

func TestRetryReaderNoRetryOnRevert(t *testing.T) {
	revert := &dataError{msg: "execution reverted", data: "cooldown"}
	backend := &flakyReader{failures: 5, err: revert}
	reader := NewRetryReader(backend, 3, time.Millisecond)

	_, err := reader.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, KindCooldownActive, KindOf(err))
}

func TestRetryReaderPassThrough(t *testing.T) {
	reader := NewRetryReader(&flakyReader{}, 0, 0)
	_, err := reader.EstimateGas(context.Background(), ethereum.CallMsg{})
	assert.Equal(t, KindInsufficientFunds, KindOf(err))

	_, err = reader.TransactionReceipt(context.Background(), common.Hash{})
	assert.ErrorIs(t, err, ethereum.NotFound)
}

func TestRetryReaderCancelled(t *testing.T) {
	backend := &flakyReader{failures: 5, err: errors.New("connection refused")}
	reader := NewRetryReader(backend, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reader.CallContract(ctx, ethereum.CallMsg{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, backend.calls)
}
