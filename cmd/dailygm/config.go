//
// Created on 2024/6/7 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"github.com/verichains/dailygm/contracts"
	"github.com/verichains/dailygm/gm"
	"github.com/verichains/dailygm/notify"
	"github.com/verichains/dailygm/wallet"
	"gopkg.in/urfave/cli.v1"
)

const (
	sessionDBName = "session"
	keystoreName  = "keystore"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type nodeConfig struct {
	RPCUrl      string
	ReadRetries int
	RetryDelay  time.Duration
}

func (cfg *nodeConfig) Sanitize(chainID uint64) error {
	if cfg.RPCUrl == "" {
		deployment, err := contracts.LookupDeployment(chainID)
		if err != nil {
			return err
		}
		log.Warn("Sanitizing node rpc url", "provided", cfg.RPCUrl, "updated", deployment.RPCUrl)
		cfg.RPCUrl = deployment.RPCUrl
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = wallet.DefaultReadRetryDelay
	}
	return nil
}

type dailyConfig struct {
	DataDir string
	Node    nodeConfig
	Wallet  wallet.Config
	GM      gm.Config
	Discord notify.Config
}

func defaultConfig() *dailyConfig {
	return &dailyConfig{
		DataDir: defaultDataDir(),
		Node: nodeConfig{
			ReadRetries: wallet.DefaultReadRetries,
			RetryDelay:  wallet.DefaultReadRetryDelay,
		},
		Wallet:  wallet.DefaultConfig,
		GM:      gm.DefaultConfig,
		Discord: notify.DefaultConfig,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".dailygm"
	}
	return filepath.Join(home, ".dailygm")
}

func loadTOMLConfig(filename string, cfg interface{}) error {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	err = tomlSettings.Unmarshal(buf, cfg)
	// Add file name to errors that have a line number.
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = fmt.Errorf("%s, %w", filename, err)
	}
	return err
}

// applyFlags overrides cfg with the command line flags that were provided.
func applyFlags(ctx *cli.Context, cfg *dailyConfig) {
	if dataDir := ctx.GlobalString(dataDirFlag.Name); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if rpcUrl := ctx.GlobalString(rpcUrlFlag.Name); rpcUrl != "" {
		cfg.Node.RPCUrl = rpcUrl
	}
	if mode := ctx.GlobalString(walletModeFlag.Name); mode != "" {
		cfg.Wallet.Mode = mode
	}
	if url := ctx.GlobalString(walletUrlFlag.Name); url != "" {
		cfg.Wallet.ProviderURL = url
	}
	if dir := ctx.GlobalString(keystoreFlag.Name); dir != "" {
		cfg.Wallet.KeystoreDir = dir
	}
	if password := ctx.GlobalString(passwordFlag.Name); password != "" {
		cfg.Wallet.Passphrase = password
	}
	if variant := ctx.GlobalString(variantFlag.Name); variant != "" {
		cfg.GM.Variant = variant
		cfg.GM.SendMethod = ""
	}
	if paymaster := ctx.GlobalString(paymasterFlag.Name); paymaster != "" {
		cfg.GM.PaymasterURL = paymaster
	}
}

// sanitize resolves paths against the data directory and aligns the settings
// shared between sections.
func (cfg *dailyConfig) sanitize() error {
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.Wallet.KeystoreDir == "" || cfg.Wallet.KeystoreDir == wallet.DefaultConfig.KeystoreDir {
		cfg.Wallet.KeystoreDir = filepath.Join(cfg.DataDir, keystoreName)
	}
	if err := cfg.GM.Sanitize(); err != nil {
		return err
	}
	cfg.Wallet.ChainID = cfg.GM.ChainID
	if cfg.Wallet.PaymasterURL == "" {
		cfg.Wallet.PaymasterURL = cfg.GM.PaymasterURL
	}
	if err := cfg.Wallet.Sanitize(); err != nil {
		return err
	}
	if err := cfg.Node.Sanitize(cfg.GM.ChainID); err != nil {
		return err
	}
	return cfg.Discord.Sanitize()
}

func (cfg *dailyConfig) sessionDBPath() string {
	return filepath.Join(cfg.DataDir, sessionDBName)
}

// makeConfig loads the TOML config file if given, applies the command line
// flags and returns the sanitized config.
func makeConfig(ctx *cli.Context) (*dailyConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadTOMLConfig(file, cfg); err != nil {
			return nil, fmt.Errorf("could not load config file %s: %w", file, err)
		}
	}
	applyFlags(ctx, cfg)
	if err := cfg.sanitize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	cfg.Wallet.Passphrase = ""
	cfg.Discord.Token = ""
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	if ctx.NArg() > 0 {
		return os.WriteFile(ctx.Args().Get(0), out, 0644)
	}
	_, err = os.Stdout.Write(out)
	return err
}
