package notify

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var DefaultConfig = Config{
	CmdPrefix:       "!",
	CommandInterval: 10 * time.Second,
	Color:           0x0052ff,
}

type Config struct {
	Enabled   bool
	Token     string `toml:",omitempty"`
	ChannelID string `toml:",omitempty"`
	CmdPrefix string
	// roles allowed to run !gm and !fund, everyone when empty
	AllowedRoles    []string `toml:",omitempty"`
	CommandInterval time.Duration
	Color           int
}

func (cfg *Config) Sanitize() error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Token == "" {
		return errors.New("discord bot token must be provided")
	}
	if cfg.ChannelID == "" {
		return errors.New("discord channel id must be provided")
	}
	if cfg.CmdPrefix == "" {
		log.Warn("Sanitizing discord command prefix", "provided", cfg.CmdPrefix, "updated", DefaultConfig.CmdPrefix)
		cfg.CmdPrefix = DefaultConfig.CmdPrefix
	}
	if cfg.CommandInterval <= 0 {
		log.Warn("Sanitizing discord command interval", "provided", cfg.CommandInterval, "updated", DefaultConfig.CommandInterval)
		cfg.CommandInterval = DefaultConfig.CommandInterval
	}
	if cfg.Color == 0 {
		cfg.Color = DefaultConfig.Color
	}
	return nil
}
