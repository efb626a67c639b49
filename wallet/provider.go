//
// Created on 2024/6/3 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

const (
	ModeLocal = "local" // keystore backed wallet running in-process
	ModeRPC   = "rpc"   // remote wallet exposing EIP-1193 methods over JSON-RPC

	CreationOnConnect = "on-connect"
	CreationManual    = "manual"

	DefaultAccountSub       = "sub"
	DefaultAccountUniversal = "universal"
)

var DefaultConfig = Config{
	Mode:               ModeLocal,
	KeystoreDir:        "keystore",
	AppName:            "Daily GM",
	AppLogoURL:         "https://raw.githubusercontent.com/base-org/brand-kit/main/logo/symbol/Base_Symbol_Blue.svg",
	ChainID:            8453,
	SubAccountCreation: CreationOnConnect,
	DefaultAccount:     DefaultAccountSub,
}

type Config struct {
	Mode        string
	ProviderURL string `toml:",omitempty"`
	KeystoreDir string `toml:",omitempty"`
	Passphrase  string `toml:",omitempty"`
	LightKDF    bool   `toml:",omitempty"` // cheaper scrypt parameters for throwaway keys

	// App metadata presented to the wallet
	AppName    string
	AppLogoURL string `toml:",omitempty"`
	ChainID    uint64

	SubAccountCreation string
	DefaultAccount     string
	PaymasterURL       string `toml:",omitempty"` // optional gas sponsorship endpoint
}

func (cfg *Config) Sanitize() error {
	switch cfg.Mode {
	case ModeLocal:
		if cfg.KeystoreDir == "" {
			log.Warn("Sanitizing wallet keystore directory", "provided", cfg.KeystoreDir, "updated", DefaultConfig.KeystoreDir)
			cfg.KeystoreDir = DefaultConfig.KeystoreDir
		}
	case ModeRPC:
		if cfg.ProviderURL == "" {
			return errors.New("wallet provider url must be provided in rpc mode")
		}
	default:
		return fmt.Errorf("invalid wallet mode '%s'", cfg.Mode)
	}
	if cfg.ChainID == 0 {
		log.Warn("Sanitizing wallet chain id", "provided", cfg.ChainID, "updated", DefaultConfig.ChainID)
		cfg.ChainID = DefaultConfig.ChainID
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultConfig.AppName
	}
	if cfg.SubAccountCreation != CreationOnConnect && cfg.SubAccountCreation != CreationManual {
		log.Warn("Sanitizing sub account creation policy", "provided", cfg.SubAccountCreation, "updated", DefaultConfig.SubAccountCreation)
		cfg.SubAccountCreation = DefaultConfig.SubAccountCreation
	}
	if cfg.DefaultAccount != DefaultAccountSub && cfg.DefaultAccount != DefaultAccountUniversal {
		log.Warn("Sanitizing default account", "provided", cfg.DefaultAccount, "updated", DefaultConfig.DefaultAccount)
		cfg.DefaultAccount = DefaultConfig.DefaultAccount
	}
	return nil
}

// Provider is the request interface of a wallet, modelled after EIP-1193.
type Provider interface {
	Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	Close()
}

// NewProvider constructs the provider selected by cfg.Mode. The backend and links
// are only used by the local wallet and may be nil in rpc mode.
func NewProvider(ctx context.Context, cfg *Config, backend Backend, links AccountLinks) (Provider, error) {
	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	log.Info("Initializing wallet provider", "mode", cfg.Mode, "app", cfg.AppName, "chain", cfg.ChainID, "subaccounts", cfg.SubAccountCreation)
	switch cfg.Mode {
	case ModeRPC:
		return DialRPCProvider(ctx, cfg)
	default:
		if backend == nil {
			return nil, errors.New("local wallet requires a chain backend")
		}
		return NewLocalProvider(cfg, backend, links)
	}
}

func request(ctx context.Context, p Provider, result interface{}, method string, params ...interface{}) error {
	raw, err := p.Request(ctx, method, params...)
	if err != nil {
		return Classify(err)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("invalid %s result: %w", method, err)
	}
	return nil
}

// RequestAccounts asks the wallet to connect, prompting the user if needed.
func RequestAccounts(ctx context.Context, p Provider) ([]common.Address, error) {
	var accounts []common.Address
	if err := request(ctx, p, &accounts, MethodRequestAccounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// Accounts returns the already authorized accounts without prompting.
func Accounts(ctx context.Context, p Provider) ([]common.Address, error) {
	var accounts []common.Address
	if err := request(ctx, p, &accounts, MethodAccounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func ChainID(ctx context.Context, p Provider) (uint64, error) {
	var id hexutil.Uint64
	if err := request(ctx, p, &id, MethodChainID); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// AddSubAccount requests the creation of a new sub account.
func AddSubAccount(ctx context.Context, p Provider) (*SubAccount, error) {
	sub := new(SubAccount)
	params := addSubAccountParams{Account: subAccountSpec{Type: "create"}}
	if err := request(ctx, p, sub, MethodAddSubAccount, params); err != nil {
		return nil, err
	}
	if sub.Address == (common.Address{}) {
		return nil, errors.New("wallet returned an empty sub account")
	}
	return sub, nil
}

func SendTransaction(ctx context.Context, p Provider, args TxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := request(ctx, p, &hash, MethodSendTransaction, args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// SendCalls submits a batch of calls and returns the batch identifier.
func SendCalls(ctx context.Context, p Provider, params SendCallsParams) (string, error) {
	var raw json.RawMessage
	if err := request(ctx, p, &raw, MethodSendCalls, params); err != nil {
		return "", err
	}
	// EIP-5792 v1 returns the id as a plain string, v2 wraps it in an object
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var ret sendCallsResult
	if err := json.Unmarshal(raw, &ret); err != nil {
		return "", fmt.Errorf("invalid %s result: %w", MethodSendCalls, err)
	}
	if ret.ID == "" {
		return "", fmt.Errorf("invalid %s result: missing id", MethodSendCalls)
	}
	return ret.ID, nil
}

func GetCallsStatus(ctx context.Context, p Provider, id string) (*CallsStatus, error) {
	status := new(CallsStatus)
	if err := request(ctx, p, status, MethodGetCallsStatus, id); err != nil {
		return nil, err
	}
	return status, nil
}

// PaymasterCapabilities returns the wallet_sendCalls capabilities requesting gas
// sponsorship from url, or nil when url is empty.
func PaymasterCapabilities(url string) map[string]interface{} {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return map[string]interface{}{
		"paymasterService": map[string]string{"url": url},
	}
}
