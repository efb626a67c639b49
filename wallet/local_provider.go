package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

const subAccountsDir = "subaccounts"

// padding applied to gas estimates
const gasPaddingPercent = 120

// AccountLinks persists which sub account belongs to which universal account.
type AccountLinks interface {
	ReadSubAccount(universal common.Address) (common.Address, bool)
	WriteSubAccount(universal, sub common.Address) error
}

type memoryLinks struct {
	links map[common.Address]common.Address
	mtx   sync.Mutex
}

func newMemoryLinks() *memoryLinks {
	return &memoryLinks{links: make(map[common.Address]common.Address)}
}

func (m *memoryLinks) ReadSubAccount(universal common.Address) (common.Address, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	sub, ok := m.links[universal]
	return sub, ok
}

func (m *memoryLinks) WriteSubAccount(universal, sub common.Address) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.links[universal] = sub
	return nil
}

type providerError struct {
	code    int
	message string
}

func (e *providerError) Error() string  { return e.message }
func (e *providerError) ErrorCode() int { return e.code }

// LocalProvider is an in-process wallet backed by two keystores, one holding the
// universal account and one holding the app sub accounts.
type LocalProvider struct {
	config    *Config
	universal *keystore.KeyStore
	subs      *keystore.KeyStore
	backend   Backend
	links     AccountLinks
	chainID   *big.Int

	calls  map[string][]common.Hash
	closed bool
	mtx    sync.Mutex
	log    log.Logger
}

func NewLocalProvider(cfg *Config, backend Backend, links AccountLinks) (*LocalProvider, error) {
	if cfg.KeystoreDir == "" {
		return nil, errors.New("keystore directory is required")
	}
	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if cfg.LightKDF {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	if links == nil {
		links = newMemoryLinks()
	}
	return &LocalProvider{
		config:    cfg,
		universal: keystore.NewKeyStore(cfg.KeystoreDir, scryptN, scryptP),
		subs:      keystore.NewKeyStore(filepath.Join(cfg.KeystoreDir, subAccountsDir), scryptN, scryptP),
		backend:   backend,
		links:     links,
		chainID:   new(big.Int).SetUint64(cfg.ChainID),
		calls:     make(map[string][]common.Hash),
		log:       log.New("module", "wallet"),
	}, nil
}

func decodeParam(params []interface{}, idx int, out interface{}) error {
	if idx >= len(params) {
		return fmt.Errorf("%w: missing param %d", ErrInvalidParams, idx)
	}
	data, err := json.Marshal(params[idx])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func encodeResult(v interface{}, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (p *LocalProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	p.mtx.Lock()
	closed := p.closed
	p.mtx.Unlock()
	if closed {
		return nil, ErrProviderClosed
	}
	switch method {
	case MethodRequestAccounts:
		return encodeResult(p.accounts(true))
	case MethodAccounts:
		return encodeResult(p.accounts(false))
	case MethodChainID:
		return encodeResult(hexutil.Uint64(p.config.ChainID), nil)
	case MethodAddSubAccount:
		var args addSubAccountParams
		if len(params) > 0 {
			if err := decodeParam(params, 0, &args); err != nil {
				return nil, err
			}
		}
		return encodeResult(p.addSubAccount(args))
	case MethodSendTransaction:
		var args TxArgs
		if err := decodeParam(params, 0, &args); err != nil {
			return nil, err
		}
		return encodeResult(p.sendTransaction(ctx, args))
	case MethodSendCalls:
		var args SendCallsParams
		if err := decodeParam(params, 0, &args); err != nil {
			return nil, err
		}
		return encodeResult(p.sendCalls(ctx, args))
	case MethodGetCallsStatus:
		var id string
		if err := decodeParam(params, 0, &id); err != nil {
			return nil, err
		}
		return encodeResult(p.callsStatus(ctx, id))
	}
	return nil, &providerError{code: codeUnsupportedMethod, message: fmt.Sprintf("%v: %s", ErrUnsupportedMethod, method)}
}

func (p *LocalProvider) universalAccount(create bool) (accounts.Account, bool, error) {
	if list := p.universal.Accounts(); len(list) > 0 {
		return list[0], true, nil
	}
	if !create {
		return accounts.Account{}, false, nil
	}
	account, err := p.universal.NewAccount(p.config.Passphrase)
	if err != nil {
		return accounts.Account{}, false, err
	}
	p.log.Info("Created universal account", "address", account.Address, "keystore", p.config.KeystoreDir)
	return account, true, nil
}

// accounts returns [universal, sub] when a sub account is linked. With prompt set,
// missing accounts are created following the configured creation policy.
func (p *LocalProvider) accounts(prompt bool) ([]common.Address, error) {
	universal, ok, err := p.universalAccount(prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []common.Address{}, nil
	}
	ret := []common.Address{universal.Address}
	if sub, ok := p.links.ReadSubAccount(universal.Address); ok {
		return append(ret, sub), nil
	}
	if prompt && p.config.SubAccountCreation == CreationOnConnect {
		sub, err := p.createSubAccount(universal.Address)
		if err != nil {
			return nil, err
		}
		ret = append(ret, sub.Address)
	}
	return ret, nil
}

func (p *LocalProvider) createSubAccount(universal common.Address) (*SubAccount, error) {
	account, err := p.subs.NewAccount(p.config.Passphrase)
	if err != nil {
		return nil, err
	}
	if err := p.links.WriteSubAccount(universal, account.Address); err != nil {
		return nil, err
	}
	p.log.Info("Created sub account", "universal", universal, "sub", account.Address)
	return &SubAccount{Address: account.Address}, nil
}

func (p *LocalProvider) addSubAccount(args addSubAccountParams) (*SubAccount, error) {
	if args.Account.Type != "" && args.Account.Type != "create" {
		return nil, fmt.Errorf("%w: unsupported sub account type '%s'", ErrInvalidParams, args.Account.Type)
	}
	universal, ok, err := p.universalAccount(false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &providerError{code: codeUnauthorized, message: "wallet is not connected"}
	}
	if sub, ok := p.links.ReadSubAccount(universal.Address); ok {
		return &SubAccount{Address: sub}, nil
	}
	return p.createSubAccount(universal.Address)
}

func (p *LocalProvider) findAccount(addr common.Address) (*keystore.KeyStore, accounts.Account, error) {
	for _, ks := range []*keystore.KeyStore{p.universal, p.subs} {
		if account, err := ks.Find(accounts.Account{Address: addr}); err == nil {
			return ks, account, nil
		}
	}
	return nil, accounts.Account{}, &providerError{code: codeUnauthorized, message: fmt.Sprintf("account %s is not managed by this wallet", addr.Hex())}
}

func (p *LocalProvider) sendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	ks, account, err := p.findAccount(args.From)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := p.backend.PendingNonceAt(ctx, args.From)
	if err != nil {
		return common.Hash{}, err
	}
	tip, err := p.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	head, err := p.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, err
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		estimated, err := p.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  args.From,
			To:    args.To,
			Value: value,
			Data:  args.Data,
		})
		if err != nil {
			return common.Hash{}, err
		}
		gas = estimated * gasPaddingPercent / 100
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   p.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        args.To,
		Value:     value,
		Data:      args.Data,
	})
	signed, err := ks.SignTxWithPassphrase(account, p.config.Passphrase, tx, p.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := p.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	p.log.Debug("Submitted transaction", "from", args.From, "hash", signed.Hash(), "nonce", nonce, "gas", gas)
	return signed.Hash(), nil
}

// sendCalls submits the calls one by one, the batch id is the hash of all
// transaction hashes.
func (p *LocalProvider) sendCalls(ctx context.Context, args SendCallsParams) (*sendCallsResult, error) {
	if len(args.Calls) == 0 {
		return nil, fmt.Errorf("%w: empty calls", ErrInvalidParams)
	}
	if _, ok := args.Capabilities["paymasterService"]; ok {
		p.log.Warn("Paymaster is not supported by the local wallet, gas is paid by the sender", "from", args.From)
	}
	hashes := make([]common.Hash, 0, len(args.Calls))
	blob := make([]byte, 0, len(args.Calls)*common.HashLength)
	for _, call := range args.Calls {
		hash, err := p.sendTransaction(ctx, TxArgs{From: args.From, To: call.To, Data: call.Data, Value: call.Value})
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
		blob = append(blob, hash.Bytes()...)
	}
	id := hexutil.Encode(crypto.Keccak256(blob))
	p.mtx.Lock()
	p.calls[id] = hashes
	p.mtx.Unlock()
	return &sendCallsResult{ID: id}, nil
}

func (p *LocalProvider) callsStatus(ctx context.Context, id string) (*CallsStatus, error) {
	p.mtx.Lock()
	hashes, ok := p.calls[id]
	p.mtx.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCalls, id)
	}
	status := &CallsStatus{ID: id, Status: CallsConfirmed}
	for _, hash := range hashes {
		receipt, err := p.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			status.Status = CallsPending
			continue
		}
		if err != nil {
			return nil, err
		}
		item := CallReceipt{TransactionHash: receipt.TxHash, Status: hexutil.Uint64(receipt.Status)}
		if receipt.BlockNumber != nil {
			item.BlockNumber = hexutil.Uint64(receipt.BlockNumber.Uint64())
		}
		status.Receipts = append(status.Receipts, item)
		if receipt.Status == types.ReceiptStatusFailed && status.Status != CallsPending {
			status.Status = CallsReverted
		}
	}
	if status.Status == CallsPending {
		status.Receipts = nil
	}
	return status, nil
}

func (p *LocalProvider) Close() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.closed = true
}
