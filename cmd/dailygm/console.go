package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/peterh/liner"
	"github.com/verichains/dailygm/gm"
	"gopkg.in/urfave/cli.v1"
)

const (
	consolePrompt = "dailygm> "
	historyFile   = "history"
)

type consoleCmd struct {
	usage string
	run   func(c *console, args []string) error
}

var consoleCommands map[string]consoleCmd

func init() {
	consoleCommands = map[string]consoleCmd{
		"connect":    {"connect the wallet", func(c *console, _ []string) error { return c.connect() }},
		"status":     {"show accounts and GM stats", func(c *console, _ []string) error { return c.status() }},
		"gm":         {"send today's GM", func(c *console, _ []string) error { return c.sayGM() }},
		"refresh":    {"re-read the GM stats", func(c *console, _ []string) error { return c.refresh() }},
		"fund":       {"open the funding page", func(c *console, _ []string) error { return c.fund() }},
		"history":    {"list sent GMs", func(c *console, _ []string) error { return c.history() }},
		"disconnect": {"forget the wallet connection", func(c *console, _ []string) error { return c.disconnect() }},
		"help":       {"show this help", func(c *console, _ []string) error { return c.help() }},
	}
}

// console is an interactive prompt over a session. Confirmations arriving in
// the background are printed as they happen.
type console struct {
	app    *dailyApp
	out    io.Writer
	prompt *liner.State
}

func (c *console) snapshot() gm.State {
	return c.app.session.Snapshot()
}

func (c *console) printState() {
	st := c.snapshot()
	printState(c.out, &st, c.app.session.Config(), nil)
}

func (c *console) connect() error {
	if err := c.app.session.Connect(context.Background()); err != nil {
		return fmt.Errorf("%s", c.snapshot().Status)
	}
	c.printState()
	return nil
}

func (c *console) status() error {
	st := c.snapshot()
	printState(c.out, &st, c.app.session.Config(), balanceOf(c.app))
	return nil
}

func (c *console) sayGM() error {
	ref, err := c.app.session.SayGM(context.Background())
	if err != nil {
		return fmt.Errorf("%s", c.snapshot().Status)
	}
	fmt.Fprintf(c.out, "GM submitted: %s, waiting for confirmation...\n", ref)
	return nil
}

func (c *console) refresh() error {
	if err := c.app.session.Refresh(context.Background()); err != nil {
		return fmt.Errorf("%s", c.snapshot().Status)
	}
	c.printState()
	return nil
}

func (c *console) fund() error {
	link, err := c.app.session.FundAccount()
	if err != nil {
		return fmt.Errorf("%s", gm.StatusConnectFirst)
	}
	fmt.Fprintf(c.out, "Fund your sub account at %s\n", linkColor.Sprint(link))
	return nil
}

func (c *console) history() error {
	if !c.snapshot().Connected {
		return fmt.Errorf("%s", gm.StatusConnectFirst)
	}
	printHistory(c.out, c.app.session.History(10), c.app.session.Config())
	return nil
}

func (c *console) disconnect() error {
	c.app.session.Disconnect()
	fmt.Fprintln(c.out, gm.StatusReadyToConnect)
	return nil
}

func (c *console) help() error {
	names := make([]string, 0, len(consoleCommands))
	for name := range consoleCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-12s %s\n", name, consoleCommands[name].usage)
	}
	fmt.Fprintf(c.out, "  %-12s %s\n", "exit", "leave the console")
	return nil
}

func (c *console) complete(line string) []string {
	var matches []string
	for name := range consoleCommands {
		if strings.HasPrefix(name, line) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// execute runs one input line and reports whether the console should exit.
func (c *console) execute(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}
	if fields[0] == "exit" || fields[0] == "quit" {
		return true
	}
	cmd, ok := consoleCommands[fields[0]]
	if !ok {
		fmt.Fprintf(c.out, "Unknown command %q, type 'help' for the list of commands\n", fields[0])
		return false
	}
	if err := cmd.run(c, fields[1:]); err != nil {
		fmt.Fprintln(c.out, errColor.Sprint(err.Error()))
	}
	return false
}

func (c *console) eventLoop(events chan gm.Event, quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case ev := <-events:
			switch ev.Type {
			case gm.EventGMConfirmed:
				if ev.State.Stats != nil {
					fmt.Fprintf(c.out, "\n%s streak %d\n", okColor.Sprint("GM confirmed!"), ev.State.Stats.CurrentStreak)
				}
			case gm.EventGMFailed:
				// submit failures are reported by the gm command itself
				if errors.Is(ev.Err, gm.ErrReverted) {
					fmt.Fprintf(c.out, "\n%s\n", errColor.Sprint(ev.State.Status))
				}
			case gm.EventStateChanged:
				if ev.State.Status == gm.StatusUnconfirmed {
					fmt.Fprintf(c.out, "\n%s\n", warnColor.Sprint(ev.State.Status))
				}
			}
		}
	}
}

func (c *console) run(historyPath string) error {
	c.prompt = liner.NewLiner()
	defer c.prompt.Close()
	c.prompt.SetCtrlCAborts(true)
	c.prompt.SetCompleter(c.complete)
	if f, err := os.Open(historyPath); err == nil {
		c.prompt.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			c.prompt.WriteHistory(f)
			f.Close()
		} else {
			log.Warn("Could not save console history", "path", historyPath, "err", err)
		}
	}()

	events := make(chan gm.Event, 16)
	quit := make(chan struct{})
	sub := c.app.session.Subscribe(events)
	defer sub.Unsubscribe()
	go c.eventLoop(events, quit)
	defer close(quit)

	fmt.Fprintln(c.out, "Welcome to the Daily GM console, type 'help' for the list of commands")
	c.printState()
	for {
		input, err := c.prompt.Prompt(consolePrompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) != "" {
			c.prompt.AppendHistory(input)
		}
		if c.execute(input) {
			return nil
		}
	}
}

func runConsole(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	app, err := newApp(context.Background(), cfg, openBrowser)
	if err != nil {
		return err
	}
	defer app.Close()
	c := &console{app: app, out: os.Stdout}
	return c.run(filepath.Join(cfg.DataDir, historyFile))
}
