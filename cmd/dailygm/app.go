package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/verichains/dailygm/gm"
	"github.com/verichains/dailygm/sessiondb"
	"github.com/verichains/dailygm/wallet"
	"gopkg.in/urfave/cli.v1"
)

const dialTimeout = 30 * time.Second

// dailyApp holds the services behind every command.
type dailyApp struct {
	config   *dailyConfig
	client   *ethclient.Client
	store    *sessiondb.Store
	provider wallet.Provider
	session  *gm.Session
}

func newApp(ctx context.Context, cfg *dailyConfig, opener gm.URLOpener) (*dailyApp, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, cfg.Node.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", cfg.Node.RPCUrl, err)
	}
	if chainID, err := client.ChainID(dialCtx); err != nil {
		log.Warn("Could not query chain id", "url", cfg.Node.RPCUrl, "err", err)
	} else if chainID.Uint64() != cfg.GM.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc url serves chain %d, expected %d", chainID, cfg.GM.ChainID)
	}

	db, err := sessiondb.Open(cfg.sessionDBPath(), false)
	if err != nil {
		client.Close()
		return nil, err
	}
	store := sessiondb.NewStore(db)

	provider, err := wallet.NewProvider(dialCtx, &cfg.Wallet, client, store)
	if err != nil {
		store.Close()
		client.Close()
		return nil, err
	}
	reader := wallet.NewRetryReader(client, cfg.Node.ReadRetries, cfg.Node.RetryDelay)
	session, err := gm.NewSession(&cfg.GM, provider, reader, store, opener)
	if err != nil {
		provider.Close()
		store.Close()
		client.Close()
		return nil, err
	}
	app := &dailyApp{
		config:   cfg,
		client:   client,
		store:    store,
		provider: provider,
		session:  session,
	}
	if restored, err := session.Restore(ctx); err != nil {
		log.Debug("Could not restore previous connection", "err", err)
	} else if restored {
		st := session.Snapshot()
		log.Debug("Connection restored", "universal", st.Universal, "sub", st.SubAccount)
	}
	return app, nil
}

func (a *dailyApp) Close() {
	a.session.Close()
	a.provider.Close()
	if err := a.store.Close(); err != nil {
		log.Error("Could not close session database", "err", err)
	}
	a.client.Close()
}

// withApp wraps a command action with the app lifecycle.
func withApp(opener gm.URLOpener, fn func(ctx *cli.Context, app *dailyApp) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		app, err := newApp(context.Background(), cfg, opener)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, app)
	}
}
