//
// Created on 2024/6/5 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package gm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/verichains/dailygm/contracts"
	"github.com/verichains/dailygm/sessiondb"
	"github.com/verichains/dailygm/task"
	"github.com/verichains/dailygm/wallet"
	"golang.org/x/sync/errgroup"
)

const (
	refreshTaskName  = "refresh"
	sendCallsVersion = "2.0.0"
)

// Store persists connections and submitted GMs across runs.
type Store interface {
	LastSession() *sessiondb.Session
	SaveSession(session *sessiondb.Session) error
	DeleteSession(universal common.Address) error
	AppendGMTx(entry *sessiondb.GMTx) (uint64, error)
	UpdateGMTx(index uint64, entry *sessiondb.GMTx) error
	RecentGMTxs(account common.Address, limit int) []*sessiondb.GMTx
}

// URLOpener opens an external page, e.g. in the system browser.
type URLOpener func(url string) error

type outcome int

const (
	outcomeUnknown outcome = iota
	outcomeConfirmed
	outcomeReverted
)

type submission struct {
	method string
	ref    string      // tx hash or calls batch id
	hash   common.Hash // known upfront for eth_sendTransaction only
	calls  bool

	entry *sessiondb.GMTx
	index uint64
}

// Session connects a wallet, tracks the GM stats of its sub account and sends GMs.
// It is safe for concurrent use.
type Session struct {
	config   *Config
	provider wallet.Provider
	reader   wallet.Reader
	contract *contracts.DailyGM
	store    Store
	opener   URLOpener
	tasks    *task.TaskManager

	state State
	epoch uint64 // bumped on connect/disconnect, stale async updates are dropped
	mtx   sync.Mutex

	feed  event.Feed
	scope event.SubscriptionScope
	log   log.Logger
}

// NewSession creates a disconnected session. store and opener are optional.
func NewSession(cfg *Config, provider wallet.Provider, reader wallet.Reader, store Store, opener URLOpener) (*Session, error) {
	if provider == nil {
		return nil, errors.New("wallet provider unavailable")
	}
	if reader == nil {
		return nil, errors.New("chain reader is required")
	}
	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	contract, err := newContract(cfg)
	if err != nil {
		return nil, err
	}
	tasks, err := task.NewTaskManager(&task.Config{MaxTasks: 4, KillTimeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Session{
		config:   cfg,
		provider: provider,
		reader:   reader,
		contract: contract,
		store:    store,
		opener:   opener,
		tasks:    tasks,
		state:    initialState(),
		log:      log.New("module", "gm"),
	}, nil
}

func (s *Session) Config() *Config {
	return s.config
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.copy()
}

// Subscribe registers ch to receive session events.
func (s *Session) Subscribe(ch chan<- Event) event.Subscription {
	return s.scope.Track(s.feed.Subscribe(ch))
}

// updateIf applies fn to the state unless the session has been reconnected or
// disconnected since epoch.
func (s *Session) updateIf(epoch uint64, fn func(st *State)) (State, bool) {
	s.mtx.Lock()
	if s.epoch != epoch {
		s.mtx.Unlock()
		return State{}, false
	}
	fn(&s.state)
	snap := s.state.copy()
	s.mtx.Unlock()
	s.feed.Send(Event{Type: EventStateChanged, State: snap})
	return snap, true
}

// reset replaces the state and starts a new epoch.
func (s *Session) reset(fn func(st *State)) (uint64, State) {
	s.mtx.Lock()
	s.epoch++
	s.state = initialState()
	if fn != nil {
		fn(&s.state)
	}
	epoch, snap := s.epoch, s.state.copy()
	s.mtx.Unlock()
	s.feed.Send(Event{Type: EventStateChanged, State: snap})
	return epoch, snap
}

// Connect requests the wallet accounts and resolves the sub account used for
// contract calls. A second returned account is the sub account, otherwise one is
// requested, falling back to the universal account when creation fails.
func (s *Session) Connect(ctx context.Context) error {
	s.mtx.Lock()
	busy := s.state.Loading
	s.mtx.Unlock()
	if busy {
		return ErrBusy
	}
	s.tasks.KillTask(refreshTaskName)
	epoch, _ := s.reset(func(st *State) {
		st.Phase = PhaseConnecting
		st.Loading = true
		st.Status = StatusConnecting
	})

	accounts, err := wallet.RequestAccounts(ctx, s.provider)
	if err != nil {
		s.log.Warn("Wallet connection failed", "err", err)
		s.updateIf(epoch, func(st *State) {
			*st = initialState()
			st.Status = connectStatusForError(err)
		})
		return err
	}
	universal := accounts[0]
	sub := &wallet.SubAccount{Address: universal}
	if len(accounts) > 1 && accounts[1] != (common.Address{}) {
		sub = &wallet.SubAccount{Address: accounts[1]}
	} else {
		s.updateIf(epoch, func(st *State) {
			st.Connected = true
			st.Universal = universal
			st.Status = StatusCreatingSub
		})
		created, err := wallet.AddSubAccount(ctx, s.provider)
		if err != nil {
			s.log.Warn("Sub account creation failed, using universal account", "universal", universal, "err", err)
		} else {
			sub = created
		}
	}
	if _, ok := s.updateIf(epoch, func(st *State) {
		st.Phase = PhaseConnected
		st.Connected = true
		st.Universal = universal
		st.SubAccount = sub.Address
		st.Factory = sub.Factory
		st.FactoryData = sub.FactoryData
	}); !ok {
		return ErrNotConnected
	}
	s.log.Info("Wallet connected", "universal", universal, "sub", sub.Address)
	s.saveSession(universal, sub)

	s.loadStats(ctx, epoch, sub.Address, StatusConnected)
	s.updateIf(epoch, func(st *State) { st.Loading = false })
	return nil
}

// Restore re-hydrates a previous connection without prompting the user. It
// reports whether a connection was restored.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	accounts, err := wallet.Accounts(ctx, s.provider)
	if err != nil {
		s.log.Debug("Silent connection check failed", "err", err)
		return false, err
	}
	if len(accounts) == 0 {
		return false, nil
	}
	universal := accounts[0]
	sub := wallet.SubAccount{}
	if len(accounts) > 1 {
		sub.Address = accounts[1]
	}
	if s.store != nil {
		saved := s.store.LastSession()
		if saved != nil && saved.Universal == universal && (sub.Address == (common.Address{}) || sub.Address == saved.SubAccount) {
			sub = wallet.SubAccount{Address: saved.SubAccount, Factory: saved.Factory, FactoryData: saved.FactoryData}
		}
	}
	if sub.Address == (common.Address{}) {
		return false, nil
	}
	s.tasks.KillTask(refreshTaskName)
	epoch, _ := s.reset(func(st *State) {
		st.Phase = PhaseConnected
		st.Connected = true
		st.Universal = universal
		st.SubAccount = sub.Address
		st.Factory = sub.Factory
		st.FactoryData = sub.FactoryData
		st.Loading = true
	})
	s.log.Debug("Restored wallet connection", "universal", universal, "sub", sub.Address)
	s.loadStats(ctx, epoch, sub.Address, StatusReady)
	s.updateIf(epoch, func(st *State) { st.Loading = false })
	return true, nil
}

// Disconnect cancels pending work and resets the state. Nothing is revoked on chain.
func (s *Session) Disconnect() {
	s.tasks.KillTask(refreshTaskName)
	s.mtx.Lock()
	universal := s.state.Universal
	s.mtx.Unlock()
	if s.store != nil && universal != (common.Address{}) {
		if err := s.store.DeleteSession(universal); err != nil {
			s.log.Warn("Could not delete persisted session", "universal", universal, "err", err)
		}
	}
	s.reset(nil)
	s.log.Info("Wallet disconnected", "universal", universal)
}

// FundAccount opens the funding page for the sub account and returns its URL.
// Failing to open the page is not an error.
func (s *Session) FundAccount() (string, error) {
	s.mtx.Lock()
	connected, sub := s.state.Connected, s.state.SubAccount
	s.mtx.Unlock()
	if !connected {
		return "", ErrNotConnected
	}
	link := FundingLink(s.config.FundingURL, sub)
	if s.opener != nil {
		if err := s.opener(link); err != nil {
			s.log.Warn("Could not open funding page", "url", link, "err", err)
		}
	}
	return link, nil
}

// Balance returns the native balance of the sub account.
func (s *Session) Balance(ctx context.Context) (*big.Int, error) {
	s.mtx.Lock()
	connected, sub := s.state.Connected, s.state.SubAccount
	s.mtx.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}
	return s.reader.BalanceAt(ctx, sub, nil)
}

// History returns the latest GMs submitted by the sub account, newest first.
func (s *Session) History(limit int) []*sessiondb.GMTx {
	s.mtx.Lock()
	connected, sub := s.state.Connected, s.state.SubAccount
	s.mtx.Unlock()
	if !connected || s.store == nil {
		return nil
	}
	return s.store.RecentGMTxs(sub, limit)
}

// Refresh re-reads the stats of the sub account.
func (s *Session) Refresh(ctx context.Context) error {
	s.mtx.Lock()
	connected, epoch, sub := s.state.Connected, s.epoch, s.state.SubAccount
	s.mtx.Unlock()
	if !connected {
		return ErrNotConnected
	}
	_, err := s.loadStats(ctx, epoch, sub, StatusConnected)
	return err
}

// SayGM is an alias of SendGM.
func (s *Session) SayGM(ctx context.Context) (string, error) {
	return s.SendGM(ctx)
}

// SendGM submits the GM write from the sub account and returns the transaction
// hash or calls batch id. Stats are refreshed in the background once the GM is
// confirmed. On failure the stats are refreshed before returning.
func (s *Session) SendGM(ctx context.Context) (string, error) {
	s.mtx.Lock()
	var err error
	switch {
	case !s.state.Connected || s.state.SubAccount == (common.Address{}):
		s.state.Status = StatusConnectFirst
		err = ErrNotConnected
	case s.state.Loading || s.state.Phase == PhaseSending:
		err = ErrBusy
	case s.state.Stats == nil || !s.state.Stats.CanGM:
		s.state.Status = StatusAlreadySent
		err = ErrCannotSend
	default:
		s.state.Loading = true
		s.state.Phase = PhaseSending
		s.state.Status = StatusSending
	}
	epoch, sub, snap := s.epoch, s.state.SubAccount, s.state.copy()
	s.mtx.Unlock()
	if err != ErrBusy {
		s.feed.Send(Event{Type: EventStateChanged, State: snap})
	}
	if err != nil {
		return "", err
	}

	sm, err := s.submit(ctx, sub)
	if err != nil {
		s.log.Warn("GM failed", "account", sub, "err", err)
		snap, ok := s.updateIf(epoch, func(st *State) {
			st.Loading = false
			st.Phase = PhaseConnected
			st.Status = statusForError(err, StatusFailed)
		})
		if ok {
			s.feed.Send(Event{Type: EventGMFailed, State: snap, Err: err})
		}
		s.loadStats(ctx, epoch, sub, "")
		return "", err
	}
	s.recordGMTx(sub, sm)
	if snap, ok := s.updateIf(epoch, func(st *State) {
		st.Loading = false
		st.TxHash = sm.ref
		st.Status = StatusSubmitted
	}); ok {
		s.feed.Send(Event{Type: EventGMSubmitted, State: snap, TxHash: sm.ref})
	}

	if err := s.tasks.RunTask(refreshTaskName, s.confirmTask(epoch, sub, sm)); err != nil {
		s.log.Error("Could not schedule stats refresh", "err", err)
		s.updateIf(epoch, func(st *State) { st.Phase = PhaseConnected })
	}
	return sm.ref, nil
}

// WaitConfirmation blocks until the background confirmation of the last GM is done.
func (s *Session) WaitConfirmation(ctx context.Context) error {
	err := s.tasks.WaitTask(ctx, refreshTaskName)
	if errors.Is(err, task.ErrTaskNotExists) {
		return nil
	}
	return err
}

func (s *Session) submit(ctx context.Context, sub common.Address) (*submission, error) {
	data, err := s.contract.PackWrite(s.config.SendMethod)
	if err != nil {
		return nil, err
	}
	if s.config.Preflight {
		if err := s.preflight(ctx, sub, data); err != nil {
			return nil, err
		}
	}
	to := s.config.Contract
	sm := &submission{method: s.config.SendMethod}
	switch s.config.Submit {
	case SubmitTransaction:
		hash, err := wallet.SendTransaction(ctx, s.provider, wallet.TxArgs{From: sub, To: &to, Data: data})
		if err != nil {
			return nil, err
		}
		sm.ref, sm.hash = hash.Hex(), hash
	default:
		id, err := wallet.SendCalls(ctx, s.provider, wallet.SendCallsParams{
			Version:        sendCallsVersion,
			ChainID:        hexutil.Uint64(s.config.ChainID),
			From:           sub,
			AtomicRequired: true,
			Calls:          []wallet.Call{{To: &to, Data: data}},
			Capabilities:   wallet.PaymasterCapabilities(s.config.PaymasterURL),
		})
		if err != nil {
			return nil, err
		}
		sm.ref, sm.calls = id, true
	}
	s.log.Info("Submitted GM", "account", sub, "method", sm.method, "ref", sm.ref)
	return sm, nil
}

// preflight catches the obvious failures before asking the wallet to sign.
func (s *Session) preflight(ctx context.Context, sub common.Address, data []byte) error {
	if s.config.Variant == VariantExtended {
		elig, err := s.contract.CanSendGM(ctx, s.reader, sub)
		switch {
		case err != nil:
			s.log.Debug("Eligibility check failed", "account", sub, "err", err)
		case !elig.CanSend:
			return wallet.NewError(wallet.KindCooldownActive, ErrCooldownActive)
		}
	}
	to := s.config.Contract
	if _, err := s.reader.EstimateGas(ctx, ethereum.CallMsg{From: sub, To: &to, Data: data}); err != nil {
		return wallet.Classify(err)
	}
	return nil
}

func (s *Session) confirmTask(epoch uint64, sub common.Address, sm *submission) task.TaskFunc {
	return func(ctx context.Context) error {
		result, hash := s.waitConfirmation(ctx, sm)
		if err := ctx.Err(); err != nil {
			return err
		}
		stats, err := s.loadStats(ctx, epoch, sub, "")
		if result == outcomeUnknown && err == nil && !stats.CanGM {
			// the refreshed stats already account for the GM
			result = outcomeConfirmed
		}
		var (
			status = StatusUnconfirmed
			evType = EventStateChanged
			evErr  error
		)
		switch result {
		case outcomeConfirmed:
			status, evType = StatusSuccess, EventGMConfirmed
		case outcomeReverted:
			status, evType, evErr = StatusFailed, EventGMFailed, ErrReverted
		}
		snap, ok := s.updateIf(epoch, func(st *State) {
			st.Phase = PhaseConnected
			st.Status = status
			if hash != (common.Hash{}) {
				st.TxHash = hash.Hex()
			}
		})
		s.finishGMTx(sm, hash, result)
		if ok && evType != EventStateChanged {
			s.feed.Send(Event{Type: evType, State: snap, TxHash: snap.TxHash, Err: evErr})
		}
		return nil
	}
}

// waitConfirmation polls the calls status or the receipt until the GM is final.
// When the confirmation cannot be observed it waits RefreshDelay since submission.
func (s *Session) waitConfirmation(ctx context.Context, sm *submission) (outcome, common.Hash) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, s.config.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
loop:
	for {
		result, hash, err := s.checkConfirmation(waitCtx, sm)
		if err != nil {
			s.log.Debug("Confirmation tracking unavailable", "ref", sm.ref, "err", err)
			break
		}
		if result != outcomeUnknown {
			return result, hash
		}
		select {
		case <-waitCtx.Done():
			break loop
		case <-ticker.C:
		}
	}
	if remaining := s.config.RefreshDelay - time.Since(start); remaining > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(remaining):
		}
	}
	return outcomeUnknown, sm.hash
}

func (s *Session) checkConfirmation(ctx context.Context, sm *submission) (outcome, common.Hash, error) {
	if sm.calls {
		status, err := wallet.GetCallsStatus(ctx, s.provider, sm.ref)
		if err != nil {
			return outcomeUnknown, common.Hash{}, err
		}
		hash, _ := status.TxHash()
		switch {
		case status.Pending():
			return outcomeUnknown, hash, nil
		case status.Confirmed():
			return outcomeConfirmed, hash, nil
		}
		return outcomeReverted, hash, nil
	}
	receipt, err := s.reader.TransactionReceipt(ctx, sm.hash)
	if errors.Is(err, ethereum.NotFound) {
		return outcomeUnknown, sm.hash, nil
	}
	if err != nil {
		return outcomeUnknown, sm.hash, err
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return outcomeConfirmed, sm.hash, nil
	}
	return outcomeReverted, sm.hash, nil
}

// loadStats fetches the stats of addr into the state, substituting zeroed stats
// on failure. The status is set to done, or left untouched when done is empty.
func (s *Session) loadStats(ctx context.Context, epoch uint64, addr common.Address, done string) (Stats, error) {
	if done != "" {
		s.updateIf(epoch, func(st *State) { st.Status = StatusLoadingStats })
	}
	stats, err := s.fetchStats(ctx, addr)
	if err != nil {
		s.log.Warn("Could not load stats", "account", addr, "err", err)
		stats = zeroStats()
	}
	s.updateIf(epoch, func(st *State) {
		st.Stats = &stats
		st.StatsErr = err
		switch {
		case done == "":
		case err != nil:
			st.Status = StatusStatsFailed
		default:
			st.Status = done
		}
	})
	return stats, err
}

func (s *Session) fetchStats(ctx context.Context, addr common.Address) (Stats, error) {
	if s.config.Variant != VariantExtended {
		rec, err := s.contract.GetGMRecord(ctx, s.reader, addr)
		if err != nil {
			return Stats{}, err
		}
		return statsFromRecord(rec), nil
	}
	var (
		stats *contracts.UserStats
		ext   *contracts.UserExtended
		elig  *contracts.Eligibility
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.contract.GetUserStats(gctx, s.reader, addr)
		return err
	})
	g.Go(func() (err error) {
		ext, err = s.contract.GetUserExtended(gctx, s.reader, addr)
		return err
	})
	g.Go(func() (err error) {
		elig, err = s.contract.CanSendGM(gctx, s.reader, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return statsFromExtended(stats, ext, elig), nil
}

func (s *Session) saveSession(universal common.Address, sub *wallet.SubAccount) {
	if s.store == nil {
		return
	}
	session := &sessiondb.Session{
		Universal:   universal,
		SubAccount:  sub.Address,
		Factory:     sub.Factory,
		FactoryData: sub.FactoryData,
		ConnectedAt: uint64(time.Now().Unix()),
	}
	if err := s.store.SaveSession(session); err != nil {
		s.log.Warn("Could not persist session", "universal", universal, "err", err)
	}
}

func (s *Session) recordGMTx(sub common.Address, sm *submission) {
	if s.store == nil {
		return
	}
	entry := &sessiondb.GMTx{
		Account: sub,
		Method:  sm.method,
		Ref:     sm.ref,
		TxHash:  sm.hash,
		Time:    uint64(time.Now().Unix()),
		Status:  sessiondb.GMTxPending,
	}
	index, err := s.store.AppendGMTx(entry)
	if err != nil {
		s.log.Warn("Could not record GM", "ref", sm.ref, "err", err)
		return
	}
	sm.entry, sm.index = entry, index
}

func (s *Session) finishGMTx(sm *submission, hash common.Hash, result outcome) {
	if sm.entry == nil || result == outcomeUnknown {
		return
	}
	entry := *sm.entry
	if hash != (common.Hash{}) {
		entry.TxHash = hash
	}
	entry.Status = sessiondb.GMTxConfirmed
	if result == outcomeReverted {
		entry.Status = sessiondb.GMTxFailed
	}
	if err := s.store.UpdateGMTx(sm.index, &entry); err != nil {
		s.log.Warn("Could not update GM record", "ref", sm.ref, "err", err)
	}
}

// Close stops background work and unsubscribes all subscribers.
func (s *Session) Close() {
	s.tasks.Stop()
	s.scope.Close()
}
