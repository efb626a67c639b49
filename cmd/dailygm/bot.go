package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/verichains/dailygm/notify"
	"gopkg.in/urfave/cli.v1"
)

func runBot(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if !cfg.Discord.Enabled {
		return errors.New("discord bot is disabled, set Discord.Enabled in the config file")
	}
	app, err := newApp(context.Background(), cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	bot, err := notify.NewDiscordBot(cfg.Discord.Token, cfg.Discord.CmdPrefix, cfg.Discord.ChannelID)
	if err != nil {
		return err
	}
	notifier, err := notify.NewNotifier(&cfg.Discord, bot, app.session)
	if err != nil {
		return err
	}
	defer notifier.Stop()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Info("Got interrupt, shutting down...")
			cancel()
		case <-runCtx.Done():
		}
	}()
	log.Info("Discord bot started", "channel", cfg.Discord.ChannelID, "prefix", cfg.Discord.CmdPrefix)
	return bot.Run(runCtx)
}
