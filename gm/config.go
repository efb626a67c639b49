package gm

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/verichains/dailygm/abiutils"
	"github.com/verichains/dailygm/contracts"
)

const (
	// VariantRecord reads the combined getGMRecord tuple and writes sayGM.
	VariantRecord = "record"
	// VariantExtended reads getUserStats, getUserExtended and canSendGM in parallel
	// and writes sendGM.
	VariantExtended = "extended"

	SubmitCalls       = "calls"       // wallet_sendCalls
	SubmitTransaction = "transaction" // eth_sendTransaction

	MinRefreshDelay = 5 * time.Second
	MaxRefreshDelay = 12 * time.Second
)

var DefaultConfig = Config{
	Contract:       common.HexToAddress("0xf5b0E9cFD956929cFB2F168667CC392c29163535"),
	ChainID:        contracts.BaseChainID,
	Variant:        VariantRecord,
	Submit:         SubmitCalls,
	ExplorerURL:    "https://basescan.org",
	FundingURL:     "https://account.base.app",
	RefreshDelay:   MinRefreshDelay,
	ConfirmTimeout: time.Minute,
	PollInterval:   2 * time.Second,
	Preflight:      true,
}

type Config struct {
	Contract     common.Address
	ChainID      uint64
	Variant      string
	SendMethod   string `toml:",omitempty"` // defaults to the write method of Variant
	Submit       string
	ExplorerURL  string
	FundingURL   string
	PaymasterURL string `toml:",omitempty"`

	ABIFile       string `toml:",omitempty"` // JSON ABI replacing the built-in one
	WriteSelector string `toml:",omitempty"` // raw selector sent for SendMethod, e.g. 0x9846cd9e

	RefreshDelay   time.Duration // delay before re-reading stats when confirmation cannot be observed
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Preflight      bool // estimate gas and check eligibility before submitting
}

func (cfg *Config) Sanitize() error {
	if cfg.ChainID == 0 {
		log.Warn("Sanitizing chain id", "provided", cfg.ChainID, "updated", DefaultConfig.ChainID)
		cfg.ChainID = DefaultConfig.ChainID
	}
	if cfg.Contract == (common.Address{}) {
		deployment, err := contracts.LookupDeployment(cfg.ChainID)
		if err != nil {
			return err
		}
		if deployment.DailyGM == (common.Address{}) {
			return fmt.Errorf("no DailyGM contract known on %s, set Contract explicitly", deployment.Name)
		}
		cfg.Contract = deployment.DailyGM
	}
	switch cfg.Variant {
	case VariantRecord, VariantExtended:
	case "":
		cfg.Variant = DefaultConfig.Variant
	default:
		return fmt.Errorf("invalid contract variant '%s'", cfg.Variant)
	}
	if cfg.SendMethod == "" {
		cfg.SendMethod = contracts.MethodSayGM
		if cfg.Variant == VariantExtended {
			cfg.SendMethod = contracts.MethodSendGM
		}
	}
	if cfg.SendMethod != contracts.MethodSayGM && cfg.SendMethod != contracts.MethodSendGM {
		return fmt.Errorf("invalid send method '%s'", cfg.SendMethod)
	}
	if cfg.WriteSelector != "" {
		if _, err := abiutils.ParseMethodId(cfg.WriteSelector); err != nil {
			return fmt.Errorf("invalid write selector: %w", err)
		}
	}
	if cfg.Submit != SubmitCalls && cfg.Submit != SubmitTransaction {
		log.Warn("Sanitizing submit mode", "provided", cfg.Submit, "updated", DefaultConfig.Submit)
		cfg.Submit = DefaultConfig.Submit
	}
	if cfg.ExplorerURL == "" {
		cfg.ExplorerURL = DefaultConfig.ExplorerURL
		if deployment, err := contracts.LookupDeployment(cfg.ChainID); err == nil {
			cfg.ExplorerURL = deployment.ExplorerURL
		}
	}
	if cfg.FundingURL == "" {
		cfg.FundingURL = DefaultConfig.FundingURL
	}
	if cfg.RefreshDelay < MinRefreshDelay || cfg.RefreshDelay > MaxRefreshDelay {
		updated := cfg.RefreshDelay
		if updated < MinRefreshDelay {
			updated = MinRefreshDelay
		} else {
			updated = MaxRefreshDelay
		}
		log.Warn("Sanitizing refresh delay", "provided", cfg.RefreshDelay, "updated", updated)
		cfg.RefreshDelay = updated
	}
	if cfg.ConfirmTimeout <= 0 {
		log.Warn("Sanitizing confirm timeout", "provided", cfg.ConfirmTimeout, "updated", DefaultConfig.ConfirmTimeout)
		cfg.ConfirmTimeout = DefaultConfig.ConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		log.Warn("Sanitizing poll interval", "provided", cfg.PollInterval, "updated", DefaultConfig.PollInterval)
		cfg.PollInterval = DefaultConfig.PollInterval
	}
	return nil
}

// newContract binds the configured contract, with the ABI file and write
// selector applied when set.
func newContract(cfg *Config) (*contracts.DailyGM, error) {
	var contract *contracts.DailyGM
	if cfg.ABIFile != "" {
		iface, err := contracts.LoadABIFile(cfg.ABIFile)
		if err != nil {
			return nil, err
		}
		contract = contracts.NewDailyGMWithABI(cfg.Contract, iface)
	} else {
		var err error
		if contract, err = contracts.NewDailyGM(cfg.Contract); err != nil {
			return nil, err
		}
	}
	if cfg.WriteSelector != "" {
		id, err := abiutils.ParseMethodId(cfg.WriteSelector)
		if err != nil {
			return nil, err
		}
		if err := contract.SetWriteSelector(cfg.SendMethod, id); err != nil {
			return nil, err
		}
	}
	return contract, nil
}
