//
// Created on 2024/6/10 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package notify

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/lus/dgc"
)

// Bot is the part of a discord bot the notifier needs.
type Bot interface {
	RegisterCommand(cmds ...dgc.Command)
	UnregisterCommand(name string)
	SendChannelMessage(message *discordgo.MessageSend) error
}

type discordBot struct {
	Session   *discordgo.Session
	CmdRouter *dgc.Router
	ChannelID string
	Commands  map[string]*dgc.Command
	mtx       sync.Mutex
}

func (bot *discordBot) rebuildRouter() {
	commands := make([]*dgc.Command, 0, len(bot.Commands))
	for _, cmd := range bot.Commands {
		commands = append(commands, cmd)
	}
	bot.CmdRouter.Commands = commands
}

func (bot *discordBot) UnregisterCommand(name string) {
	bot.mtx.Lock()
	defer bot.mtx.Unlock()
	if _, ok := bot.Commands[name]; ok {
		delete(bot.Commands, name)
		bot.rebuildRouter()
	}
}

func (bot *discordBot) RegisterCommand(cmds ...dgc.Command) {
	bot.mtx.Lock()
	defer bot.mtx.Unlock()
	for idx := range cmds {
		cmd := cmds[idx]
		bot.Commands[cmd.Name] = &cmd
	}
	bot.rebuildRouter()
}

func (bot *discordBot) SendChannelMessage(message *discordgo.MessageSend) error {
	_, err := bot.Session.ChannelMessageSendComplex(bot.ChannelID, message)
	return err
}

// Run serves commands until ctx is cancelled.
func (bot *discordBot) Run(ctx context.Context) error {
	bot.CmdRouter.RegisterDefaultHelpCommand(bot.Session, nil)
	bot.CmdRouter.Initialize(bot.Session)
	<-ctx.Done()
	return bot.Session.Close()
}

func NewDiscordBot(token string, cmdPrefix string, channelID string) (*discordBot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if err = session.Open(); err != nil {
		return nil, err
	}
	cmdRouter := &dgc.Router{
		Prefixes: []string{cmdPrefix},
		Storage:  make(map[string]*dgc.ObjectsMap),
	}
	return &discordBot{
		Session:   session,
		CmdRouter: cmdRouter,
		ChannelID: channelID,
		Commands:  make(map[string]*dgc.Command),
	}, nil
}
