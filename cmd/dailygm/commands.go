package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/verichains/dailygm/gm"
	"github.com/verichains/dailygm/sessiondb"
	"gopkg.in/urfave/cli.v1"
)

var (
	connectCommand = cli.Command{
		Action:      withApp(nil, connect),
		Name:        "connect",
		Usage:       "Connect the wallet and resolve the sub account",
		Description: `Requests the wallet accounts, creating a sub account when the wallet returns only the universal account, and shows the GM stats of the sub account.`,
	}
	statusCommand = cli.Command{
		Action: withApp(nil, status),
		Name:   "status",
		Usage:  "Show the connected accounts and GM stats",
	}
	gmCommand = cli.Command{
		Action:      withApp(nil, sayGM),
		Name:        "gm",
		Usage:       "Send today's GM from the sub account",
		Flags:       []cli.Flag{waitFlag},
		Description: `Submits the GM write through the wallet. With --wait the command blocks until the GM is confirmed and the stats are refreshed.`,
	}
	fundCommand = cli.Command{
		Action: withApp(openBrowser, fund),
		Name:   "fund",
		Usage:  "Open the funding page of the sub account",
	}
	historyCommand = cli.Command{
		Action: withApp(nil, history),
		Name:   "history",
		Usage:  "List the GMs sent from this machine",
		Flags:  []cli.Flag{limitFlag},
	}
	disconnectCommand = cli.Command{
		Action: withApp(nil, disconnect),
		Name:   "disconnect",
		Usage:  "Forget the wallet connection",
	}
	consoleCommand = cli.Command{
		Action: runConsole,
		Name:   "console",
		Usage:  "Start an interactive console (default)",
	}
	botCommand = cli.Command{
		Action:      runBot,
		Name:        "bot",
		Usage:       "Run the discord bot",
		Description: `Posts GM events to the configured discord channel and serves the !gm, !stats, !status and !fund commands.`,
	}
	dbCommand = cli.Command{
		Name:     "db",
		Usage:    "Low level operations for the session database",
		Category: "DATABASE COMMANDS",
		Subcommands: []cli.Command{
			dbInspectCmd,
		},
	}
	dbInspectCmd = cli.Command{
		Action:      inspectDB,
		Name:        "inspect",
		Usage:       "Inspect the storage size for each type of data in the database",
		Description: `This commands iterates the entire session database.`,
	}
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "<dumpfile>",
		Description: `The dumpconfig command shows configuration values.`,
	}
)

func balanceOf(app *dailyApp) *big.Int {
	balance, err := app.session.Balance(context.Background())
	if err != nil {
		log.Debug("Could not query balance", "err", err)
		return nil
	}
	return balance
}

func connect(ctx *cli.Context, app *dailyApp) error {
	if err := app.session.Connect(context.Background()); err != nil {
		st := app.session.Snapshot()
		return errors.New(st.Status)
	}
	st := app.session.Snapshot()
	printState(os.Stdout, &st, app.session.Config(), balanceOf(app))
	return nil
}

func status(ctx *cli.Context, app *dailyApp) error {
	st := app.session.Snapshot()
	var balance *big.Int
	if st.Connected {
		balance = balanceOf(app)
	}
	printState(os.Stdout, &st, app.session.Config(), balance)
	return nil
}

func sayGM(ctx *cli.Context, app *dailyApp) error {
	ref, err := app.session.SayGM(context.Background())
	if err != nil {
		st := app.session.Snapshot()
		if errors.Is(err, gm.ErrNotConnected) || errors.Is(err, gm.ErrCannotSend) {
			printState(os.Stdout, &st, app.session.Config(), nil)
			return nil
		}
		return errors.New(st.Status)
	}
	cfg := app.session.Config()
	if url := gm.TxURL(cfg.ExplorerURL, ref); url != "" {
		fmt.Printf("GM submitted: %s\n", linkColor.Sprint(url))
	} else {
		fmt.Printf("GM submitted, calls id %s\n", ref)
	}
	if !ctx.Bool(waitFlag.Name) {
		return nil
	}
	if err := app.session.WaitConfirmation(context.Background()); err != nil {
		return err
	}
	st := app.session.Snapshot()
	printState(os.Stdout, &st, cfg, nil)
	return nil
}

func fund(ctx *cli.Context, app *dailyApp) error {
	link, err := app.session.FundAccount()
	if err != nil {
		return errors.New(gm.StatusConnectFirst)
	}
	fmt.Printf("Fund your sub account at %s\n", linkColor.Sprint(link))
	if balance := balanceOf(app); balance != nil {
		fmt.Printf("Current balance: %s ETH\n", gm.AmountString(balance, 18))
	}
	return nil
}

func history(ctx *cli.Context, app *dailyApp) error {
	if !app.session.Snapshot().Connected {
		return errors.New(gm.StatusConnectFirst)
	}
	printHistory(os.Stdout, app.session.History(ctx.Int(limitFlag.Name)), app.session.Config())
	return nil
}

func disconnect(ctx *cli.Context, app *dailyApp) error {
	app.session.Disconnect()
	fmt.Println(gm.StatusReadyToConnect)
	return nil
}

func inspectDB(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	db, err := sessiondb.Open(cfg.sessionDBPath(), true)
	if err != nil {
		fatalf("Could not open database: %v", err)
	}
	defer db.Close()
	return sessiondb.InspectDatabase(db, os.Stdout)
}
