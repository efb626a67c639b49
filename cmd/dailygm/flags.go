package main

import "gopkg.in/urfave/cli.v1"

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the session database and local keystore (default = ~/.dailygm)",
	}
	rpcUrlFlag = cli.StringFlag{
		Name:  "rpcurl",
		Usage: "Base chain RPC url used for contract reads and the local wallet",
	}
	walletModeFlag = cli.StringFlag{
		Name:  "wallet.mode",
		Usage: "Wallet provider, 'local' keystore wallet or 'rpc' remote EIP-1193 wallet",
	}
	walletUrlFlag = cli.StringFlag{
		Name:  "wallet.url",
		Usage: "Remote wallet JSON-RPC url, required in rpc mode",
	}
	keystoreFlag = cli.StringFlag{
		Name:  "keystore",
		Usage: "Directory of the local wallet keystore (default = inside the datadir)",
	}
	passwordFlag = cli.StringFlag{
		Name:   "password",
		Usage:  "Passphrase protecting the local wallet keys",
		EnvVar: "DAILYGM_PASSWORD",
	}
	variantFlag = cli.StringFlag{
		Name:  "gm.variant",
		Usage: "DailyGM contract revision, 'record' or 'extended'",
	}
	paymasterFlag = cli.StringFlag{
		Name:  "gm.paymaster",
		Usage: "Paymaster service url sponsoring GM gas",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	limitFlag = cli.IntFlag{
		Name:  "limit",
		Usage: "Number of entries to show",
		Value: 10,
	}
	waitFlag = cli.BoolFlag{
		Name:  "wait",
		Usage: "Wait for the GM to be confirmed",
	}
)
