package gm

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/verichains/dailygm/contracts"
)

type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseSending
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseSending:
		return "sending"
	}
	return "disconnected"
}

// Stats is a snapshot of the contract state of one account.
type Stats struct {
	LastGM        uint64 // unix seconds
	CurrentStreak uint64
	LongestStreak uint64
	TotalGMs      uint64
	CanGM         bool

	// extended variant only
	Points      uint64
	BonusPoints uint64
	Rank        uint64
	Whitelisted bool
	NextGMIn    time.Duration
}

// zeroStats is shown when the stats could not be read. CanGM stays true so the
// contract gets to decide.
func zeroStats() Stats {
	return Stats{CanGM: true}
}

func toUint64(v *big.Int) uint64 {
	if v == nil || v.Sign() < 0 {
		return 0
	}
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

func statsFromRecord(rec *contracts.GMRecord) Stats {
	return Stats{
		LastGM:        toUint64(rec.LastGM),
		CurrentStreak: toUint64(rec.CurrentStreak),
		LongestStreak: toUint64(rec.LongestStreak),
		TotalGMs:      toUint64(rec.TotalGMs),
		CanGM:         rec.CanGMToday,
	}
}

func statsFromExtended(stats *contracts.UserStats, ext *contracts.UserExtended, elig *contracts.Eligibility) Stats {
	wait := toUint64(elig.TimeUntilNext)
	if wait > uint64(math.MaxInt64/int64(time.Second)) {
		wait = uint64(math.MaxInt64 / int64(time.Second))
	}
	return Stats{
		LastGM:        toUint64(stats.LastGM),
		CurrentStreak: toUint64(stats.CurrentStreak),
		LongestStreak: toUint64(stats.LongestStreak),
		TotalGMs:      toUint64(stats.TotalGMs),
		CanGM:         elig.CanSend,
		Points:        toUint64(stats.Points),
		BonusPoints:   toUint64(ext.BonusPoints),
		Rank:          toUint64(ext.Rank),
		Whitelisted:   ext.IsWhitelisted,
		NextGMIn:      time.Duration(wait) * time.Second,
	}
}

// State is the view model of a Session.
type State struct {
	Phase       Phase
	Connected   bool
	Universal   common.Address
	SubAccount  common.Address
	Factory     *common.Address
	FactoryData []byte
	Stats       *Stats
	StatsErr    error
	Loading     bool
	Status      string
	TxHash      string // transaction hash or calls batch id of the last GM
}

func initialState() State {
	return State{Phase: PhaseDisconnected, Status: StatusReadyToConnect}
}

func (st *State) copy() State {
	cpy := *st
	if st.Factory != nil {
		factory := *st.Factory
		cpy.Factory = &factory
	}
	if st.FactoryData != nil {
		cpy.FactoryData = common.CopyBytes(st.FactoryData)
	}
	if st.Stats != nil {
		stats := *st.Stats
		cpy.Stats = &stats
	}
	return cpy
}

// CanGM reports whether the last fetched stats allow sending a GM.
func (st *State) CanGM() bool {
	return st.Connected && st.Stats != nil && st.Stats.CanGM
}

type EventType int

const (
	EventStateChanged EventType = iota
	EventGMSubmitted
	EventGMConfirmed
	EventGMFailed
)

func (t EventType) String() string {
	switch t {
	case EventGMSubmitted:
		return "submitted"
	case EventGMConfirmed:
		return "confirmed"
	case EventGMFailed:
		return "failed"
	}
	return "state"
}

// Event is delivered to subscribers on every state change and GM lifecycle step.
type Event struct {
	Type   EventType
	State  State
	TxHash string
	Err    error
}
