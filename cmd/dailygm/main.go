package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app *cli.App
)

func init() {
	app = cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "Say GM on Base every day and keep your streak alive"
	app.Version = fmt.Sprintf("%s - %s ", gitCommit, gitDate)
	app.Flags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		rpcUrlFlag,
		walletModeFlag,
		walletUrlFlag,
		keystoreFlag,
		passwordFlag,
		variantFlag,
		paymasterFlag,
		verbosityFlag,
	}
	app.Commands = []cli.Command{
		connectCommand,
		statusCommand,
		gmCommand,
		fundCommand,
		historyCommand,
		disconnectCommand,
		consoleCommand,
		botCommand,
		dbCommand,
		dumpConfigCommand,
	}
	app.Action = runConsole
	app.Before = setupLogging
}

// setupLogging installs the root log handler, colored when stderr is a terminal.
func setupLogging(ctx *cli.Context) error {
	var (
		output   io.Writer = os.Stderr
		fd                 = os.Stderr.Fd()
		useColor           = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
	)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(useColor))
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(ctx.GlobalInt(verbosityFlag.Name)), handler))
	return nil
}

// fatalf formats a message to standard error and exits the program.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
