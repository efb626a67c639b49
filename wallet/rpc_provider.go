package wallet

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPCProvider forwards wallet requests to a remote wallet over JSON-RPC.
type RPCProvider struct {
	client *rpc.Client
	url    string
	closed int32
}

func DialRPCProvider(ctx context.Context, cfg *Config) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, NewError(KindUnavailable, err)
	}
	return NewRPCProvider(client, cfg.ProviderURL), nil
}

func NewRPCProvider(client *rpc.Client, url string) *RPCProvider {
	return &RPCProvider{client: client, url: url}
}

func (p *RPCProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return nil, ErrProviderClosed
	}
	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, method, params...); err != nil {
		log.Debug("Wallet request failed", "url", p.url, "method", method, "error", err)
		return nil, Classify(err)
	}
	return result, nil
}

func (p *RPCProvider) Close() {
	if atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		p.client.Close()
	}
}
