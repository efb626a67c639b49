package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/lus/dgc"
	"github.com/verichains/dailygm/gm"
	"golang.org/x/time/rate"
)

const (
	colorSuccess = 0x2ecc71
	colorFailure = 0xe74c3c

	commandTimeout = 30 * time.Second
)

// GMSession is the part of gm.Session driven by the notifier.
type GMSession interface {
	Config() *gm.Config
	Snapshot() gm.State
	Subscribe(ch chan<- gm.Event) event.Subscription
	SendGM(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
	FundAccount() (string, error)
}

// Notifier posts GM lifecycle events to a discord channel and serves the bot
// commands operating the session.
type Notifier struct {
	Bot
	config  *Config
	session GMSession
	limiter *rate.Limiter
	eventCh chan gm.Event
	sub     event.Subscription
	log     log.Logger
}

func (n *Notifier) field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func (n *Notifier) accountLink(st *gm.State) string {
	explorer := n.session.Config().ExplorerURL
	return fmt.Sprintf("[%s](%s)", gm.FormatAddress(st.SubAccount.Hex()), gm.AddressURL(explorer, st.SubAccount))
}

func (n *Notifier) refLink(ref string) string {
	if url := gm.TxURL(n.session.Config().ExplorerURL, ref); url != "" {
		return fmt.Sprintf("[%s](%s)", gm.FormatAddress(ref), url)
	}
	return fmt.Sprintf("`%s`", ref)
}

func (n *Notifier) statsFields(stats *gm.Stats) []*discordgo.MessageEmbedField {
	if stats == nil {
		return nil
	}
	fields := []*discordgo.MessageEmbedField{
		n.field("Current streak", fmt.Sprintf("%d", stats.CurrentStreak)),
		n.field("Longest streak", fmt.Sprintf("%d", stats.LongestStreak)),
		n.field("Total GMs", fmt.Sprintf("%d", stats.TotalGMs)),
	}
	if n.session.Config().Variant == gm.VariantExtended {
		fields = append(fields,
			n.field("Points", fmt.Sprintf("%d (+%d bonus)", stats.Points, stats.BonusPoints)),
			n.field("Rank", fmt.Sprintf("#%d", stats.Rank)),
		)
	}
	next := "now"
	if !stats.CanGM {
		next = gm.FormatCountdown(gm.NextGMIn(stats, time.Now()))
	}
	return append(fields, n.field("Next GM", next))
}

func (n *Notifier) renderEvent(ev *gm.Event) *discordgo.MessageSend {
	var (
		title  string
		color  = n.config.Color
		fields = []*discordgo.MessageEmbedField{n.field("Account", n.accountLink(&ev.State))}
	)
	switch ev.Type {
	case gm.EventGMSubmitted:
		title = "GM submitted"
		fields = append(fields, n.field("Ref", n.refLink(ev.TxHash)))
	case gm.EventGMConfirmed:
		title, color = "GM confirmed", colorSuccess
		if ev.TxHash != "" {
			fields = append(fields, n.field("Tx", n.refLink(ev.TxHash)))
		}
		fields = append(fields, n.statsFields(ev.State.Stats)...)
	case gm.EventGMFailed:
		title, color = "GM failed", colorFailure
		fields = append(fields, n.field("Status", ev.State.Status))
		if ev.Err != nil {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Error", Value: ev.Err.Error()})
		}
	default:
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:     title,
		Type:      "rich",
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if url := gm.TxURL(n.session.Config().ExplorerURL, ev.TxHash); url != "" {
		embed.URL = url
	}
	return &discordgo.MessageSend{Embed: embed}
}

func (n *Notifier) renderStats(st *gm.State) *discordgo.MessageSend {
	if !st.Connected {
		return &discordgo.MessageSend{Content: gm.StatusConnectFirst}
	}
	embed := &discordgo.MessageEmbed{
		Title:     "GM stats",
		Type:      "rich",
		Color:     n.config.Color,
		Fields:    append([]*discordgo.MessageEmbedField{n.field("Account", n.accountLink(st))}, n.statsFields(st.Stats)...),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if st.StatsErr != nil {
		embed.Description = gm.StatusStatsFailed
	}
	return &discordgo.MessageSend{Embed: embed}
}

func (n *Notifier) sendChannelMessage(msg *discordgo.MessageSend) error {
	if err := n.SendChannelMessage(msg); err != nil {
		msgJson, _ := json.Marshal(msg)
		n.log.Error("Could not send discord message", "msg", string(msgJson), "error", err)
		return err
	}
	return nil
}

func (n *Notifier) notifyLoop() {
	for {
		select {
		case <-n.sub.Err():
			return
		case ev := <-n.eventCh:
			if msg := n.renderEvent(&ev); msg != nil {
				n.sendChannelMessage(msg)
			}
		}
	}
}

func (n *Notifier) registerBotCommands() {
	n.RegisterCommand(
		dgc.Command{
			Name:        "gm",
			Description: "Send today's GM from the sub account",
			Usage:       "gm",
			Handler:     n.handleGM,
		},
		dgc.Command{
			Name:        "stats",
			Description: "Show the GM streak of the connected account",
			Usage:       "stats",
			Handler:     n.handleStats,
		},
		dgc.Command{
			Name:        "status",
			Description: "Show the session status",
			Usage:       "status",
			Handler:     n.handleStatus,
		},
		dgc.Command{
			Name:        "fund",
			Description: "Show the funding link of the sub account",
			Usage:       "fund",
			Handler:     n.handleFund,
		},
	)
}

func (n *Notifier) allowed(member *discordgo.Member) bool {
	if len(n.config.AllowedRoles) == 0 {
		return true
	}
	if member == nil {
		return false
	}
	for _, role := range member.Roles {
		for _, allowed := range n.config.AllowedRoles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

func (n *Notifier) respond(ctx *dgc.Ctx, msg *discordgo.MessageSend) {
	if _, err := ctx.Session.ChannelMessageSendComplex(ctx.Event.ChannelID, msg); err != nil {
		n.log.Error("Could not respond to command", "cmd", ctx.Command.Name, "error", err)
	}
}

func (n *Notifier) runGM(member *discordgo.Member) *discordgo.MessageSend {
	if !n.allowed(member) {
		return &discordgo.MessageSend{Content: "❌ You are not allowed to send GMs."}
	}
	if !n.limiter.Allow() {
		return &discordgo.MessageSend{Content: "⏳ Slow down, try again in a moment."}
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ref, err := n.session.SendGM(ctx)
	if err != nil {
		return &discordgo.MessageSend{Content: fmt.Sprintf("❌ %s", n.session.Snapshot().Status)}
	}
	return &discordgo.MessageSend{Content: fmt.Sprintf("✅ GM submitted: %s", n.refLink(ref))}
}

func (n *Notifier) runStats() *discordgo.MessageSend {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := n.session.Refresh(ctx); err != nil {
		n.log.Debug("Stats refresh failed", "err", err)
	}
	st := n.session.Snapshot()
	return n.renderStats(&st)
}

func (n *Notifier) runStatus() *discordgo.MessageSend {
	st := n.session.Snapshot()
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Status**: %s\n", st.Status)
	if st.Connected {
		fmt.Fprintf(&sb, "**Account**: %s\n", n.accountLink(&st))
	}
	if st.TxHash != "" {
		fmt.Fprintf(&sb, "**Last GM**: %s\n", n.refLink(st.TxHash))
	}
	return &discordgo.MessageSend{Content: sb.String()}
}

func (n *Notifier) runFund(member *discordgo.Member) *discordgo.MessageSend {
	if !n.allowed(member) {
		return &discordgo.MessageSend{Content: "❌ You are not allowed to fund the account."}
	}
	link, err := n.session.FundAccount()
	if err != nil {
		return &discordgo.MessageSend{Content: gm.StatusConnectFirst}
	}
	return &discordgo.MessageSend{Content: fmt.Sprintf("💸 Fund the sub account: %s", link)}
}

func (n *Notifier) handleGM(ctx *dgc.Ctx) {
	n.respond(ctx, n.runGM(ctx.Event.Member))
}

func (n *Notifier) handleStats(ctx *dgc.Ctx) {
	n.respond(ctx, n.runStats())
}

func (n *Notifier) handleStatus(ctx *dgc.Ctx) {
	n.respond(ctx, n.runStatus())
}

func (n *Notifier) handleFund(ctx *dgc.Ctx) {
	n.respond(ctx, n.runFund(ctx.Event.Member))
}

// Stop unsubscribes from the session and removes the bot commands.
func (n *Notifier) Stop() {
	n.sub.Unsubscribe()
	for _, name := range []string{"gm", "stats", "status", "fund"} {
		n.UnregisterCommand(name)
	}
}

func NewNotifier(cfg *Config, bot Bot, session GMSession) (*Notifier, error) {
	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	n := &Notifier{
		Bot:     bot,
		config:  cfg,
		session: session,
		limiter: rate.NewLimiter(rate.Every(cfg.CommandInterval), 1),
		eventCh: make(chan gm.Event, 16),
		log:     log.New("module", "notify"),
	}
	n.registerBotCommands()
	n.sub = session.Subscribe(n.eventCh)
	go n.notifyLoop()
	return n, nil
}
