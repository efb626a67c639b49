package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verichains/dailygm/contracts"
	"github.com/verichains/dailygm/gm"
	"github.com/verichains/dailygm/wallet"
	"gopkg.in/urfave/cli.v1"
)

func newFlagContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

func writeConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadConfigFile(t *testing.T) {
	dataDir := t.TempDir()
	file := writeConfig(t, fmt.Sprintf(`
DataDir = %q

[Node]
RPCUrl = "http://localhost:8545"

[Wallet]
Mode = "rpc"
ProviderURL = "http://localhost:9545"

[GM]
Variant = "extended"
PaymasterURL = "https://paymaster.example"
WriteSelector = "0x32117cf0"
`, dataDir))

	cfg, err := makeConfig(newFlagContext(t, "--config", file))
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "http://localhost:8545", cfg.Node.RPCUrl)
	assert.Equal(t, wallet.DefaultReadRetries, cfg.Node.ReadRetries)
	assert.Equal(t, wallet.ModeRPC, cfg.Wallet.Mode)
	assert.Equal(t, "http://localhost:9545", cfg.Wallet.ProviderURL)
	assert.Equal(t, gm.VariantExtended, cfg.GM.Variant)
	assert.Equal(t, contracts.MethodSendGM, cfg.GM.SendMethod)
	assert.Equal(t, gm.DefaultConfig.Contract, cfg.GM.Contract)
	assert.Equal(t, "https://paymaster.example", cfg.Wallet.PaymasterURL)
	assert.Equal(t, "0x32117cf0", cfg.GM.WriteSelector)
	assert.Equal(t, filepath.Join(dataDir, sessionDBName), cfg.sessionDBPath())
	assert.False(t, cfg.Discord.Enabled)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := writeConfig(t, `
[GM]
Streak = 3
`)
	_, err := makeConfig(newFlagContext(t, "--config", file))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Streak")
}

func TestFlagsOverrideConfig(t *testing.T) {
	dataDir := t.TempDir()
	file := writeConfig(t, `
[Node]
RPCUrl = "http://localhost:8545"

[GM]
Variant = "extended"
`)
	cfg, err := makeConfig(newFlagContext(t,
		"--config", file,
		"--datadir", dataDir,
		"--rpcurl", "http://node:8545",
		"--gm.variant", "record",
		"--password", "secret",
	))
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "http://node:8545", cfg.Node.RPCUrl)
	assert.Equal(t, gm.VariantRecord, cfg.GM.Variant)
	assert.Equal(t, contracts.MethodSayGM, cfg.GM.SendMethod)
	assert.Equal(t, "secret", cfg.Wallet.Passphrase)
	assert.Equal(t, filepath.Join(dataDir, keystoreName), cfg.Wallet.KeystoreDir)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := makeConfig(newFlagContext(t, "--datadir", t.TempDir()))
	require.NoError(t, err)
	deployment, err := contracts.LookupDeployment(contracts.BaseChainID)
	require.NoError(t, err)
	assert.Equal(t, deployment.RPCUrl, cfg.Node.RPCUrl)
	assert.Equal(t, contracts.BaseChainID, cfg.Wallet.ChainID)
	assert.Equal(t, wallet.ModeLocal, cfg.Wallet.Mode)
	assert.Equal(t, gm.SubmitCalls, cfg.GM.Submit)
}

func TestConfigInvalid(t *testing.T) {
	_, err := makeConfig(newFlagContext(t, "--datadir", t.TempDir(), "--wallet.mode", "rpc"))
	assert.Error(t, err, "rpc mode requires a wallet url")

	file := writeConfig(t, `
[Discord]
Enabled = true
`)
	_, err = makeConfig(newFlagContext(t, "--config", file))
	assert.Error(t, err, "enabled bot requires a token")

	file = writeConfig(t, `
[GM]
WriteSelector = "0x9846"
`)
	_, err = makeConfig(newFlagContext(t, "--config", file, "--datadir", t.TempDir()))
	assert.Error(t, err, "write selector must be 4 bytes")
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	cfg.Discord.AllowedRoles = []string{"admin"}
	out, err := tomlSettings.Marshal(cfg)
	require.NoError(t, err)

	loaded := new(dailyConfig)
	require.NoError(t, tomlSettings.Unmarshal(out, loaded))
	assert.Equal(t, cfg, loaded)
}
