package wallet

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	DefaultReadRetries    = 2
	DefaultReadRetryDelay = 500 * time.Millisecond
)

// Reader is the read-only chain access used to query the contract.
type Reader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Backend is the chain access needed by the local wallet to sign and submit transactions.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// RetryReader retries transient read failures and tags returned errors.
type RetryReader struct {
	backend Reader
	retries int
	delay   time.Duration
}

func NewRetryReader(backend Reader, retries int, delay time.Duration) *RetryReader {
	if retries < 0 {
		retries = 0
	}
	return &RetryReader{backend: backend, retries: retries, delay: delay}
}

// retryable reports whether err is a transport failure. Errors answered by the
// node itself, like reverts, are returned as-is.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}

func (r *RetryReader) retry(ctx context.Context, name string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		log.Debug("Chain read failed", "call", name, "attempt", attempt+1, "error", err)
	}
	return err
}

func (r *RetryReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var ret []byte
	err := r.retry(ctx, "eth_call", func() (err error) {
		ret, err = r.backend.CallContract(ctx, msg, blockNumber)
		return err
	})
	return ret, Classify(err)
}

func (r *RetryReader) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := r.backend.EstimateGas(ctx, msg)
	return gas, Classify(err)
}

func (r *RetryReader) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := r.retry(ctx, "eth_getBalance", func() (err error) {
		balance, err = r.backend.BalanceAt(ctx, account, blockNumber)
		return err
	})
	return balance, Classify(err)
}

// TransactionReceipt is not retried, callers poll it until the receipt shows up.
func (r *RetryReader) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return r.backend.TransactionReceipt(ctx, txHash)
}
