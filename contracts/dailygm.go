package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/verichains/dailygm/abiutils"
)

const (
	MethodGetGMRecord     = "getGMRecord"
	MethodGetUserStats    = "getUserStats"
	MethodGetUserExtended = "getUserExtended"
	MethodCanSendGM       = "canSendGM"
	MethodSayGM           = "sayGM"
	MethodSendGM          = "sendGM"
)

var ErrEmptyResult = errors.New("contract call returned no data")

// DailyGMSigs is the human-readable ABI of the DailyGM contract. getGMRecord/sayGM
// belong to the first contract revision, the rest to the points revision.
var DailyGMSigs = []string{
	"function getGMRecord(address user) view returns (uint256 lastGM, uint256 currentStreak, uint256 longestStreak, uint256 totalGMs, bool canGMToday)",
	"function getUserStats(address user) view returns (uint256 lastGM, uint256 currentStreak, uint256 longestStreak, uint256 totalGMs, uint256 points)",
	"function getUserExtended(address user) view returns (uint256 rank, bool isWhitelisted, uint256 bonusPoints)",
	"function canSendGM(address user) view returns (bool canSend, uint256 timeUntilNext)",
	"function sayGM()",
	"function sendGM()",
}

// ContractCaller is the read-only part of a chain client needed by DailyGM.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type GMRecord struct {
	LastGM        *big.Int
	CurrentStreak *big.Int
	LongestStreak *big.Int
	TotalGMs      *big.Int
	CanGMToday    bool
}

type UserStats struct {
	LastGM        *big.Int
	CurrentStreak *big.Int
	LongestStreak *big.Int
	TotalGMs      *big.Int
	Points        *big.Int
}

type UserExtended struct {
	Rank          *big.Int
	IsWhitelisted bool
	BonusPoints   *big.Int
}

type Eligibility struct {
	CanSend       bool
	TimeUntilNext *big.Int
}

// DailyGM is a thin binding over the DailyGM contract.
type DailyGM struct {
	Address   common.Address
	abi       *abiutils.Interface
	selectors map[string]abiutils.MethodId // write selector overrides
}

// NewDailyGM binds the contract at address with the built-in ABI. Known
// deployments get their raw write selectors applied.
func NewDailyGM(address common.Address) (*DailyGM, error) {
	iface, err := abiutils.ParseHumanABI("DailyGM", DailyGMSigs)
	if err != nil {
		return nil, err
	}
	c := NewDailyGMWithABI(address, iface)
	if d, ok := lookupDeploymentByAddress(address); ok {
		for method, id := range d.WriteSelectors {
			c.selectors[method] = id
		}
	}
	return c, nil
}

// NewDailyGMWithABI binds the contract at address with a custom ABI, e.g. the
// artifact of a redeployed contract.
func NewDailyGMWithABI(address common.Address, iface *abiutils.Interface) *DailyGM {
	return &DailyGM{
		Address:   address,
		abi:       iface,
		selectors: make(map[string]abiutils.MethodId),
	}
}

// LoadABIFile reads a JSON ABI document, entries may also be human-readable
// method signatures.
func LoadABIFile(path string) (*abiutils.Interface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	iface, err := abiutils.UnmarshalInterface("DailyGM", data)
	if err != nil {
		return nil, fmt.Errorf("invalid abi file %s: %w", path, err)
	}
	return iface, nil
}

func (c *DailyGM) ABI() *abiutils.Interface {
	return c.abi
}

func (c *DailyGM) call(ctx context.Context, caller ContractCaller, from common.Address, out interface{}, method string, args ...interface{}) error {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return err
	}
	msg := ethereum.CallMsg{From: from, To: &c.Address, Data: input}
	output, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return err
	}
	if len(output) == 0 {
		return fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	return c.abi.UnpackOutput(out, method, output)
}

func (c *DailyGM) GetGMRecord(ctx context.Context, caller ContractCaller, user common.Address) (*GMRecord, error) {
	ret := new(GMRecord)
	if err := c.call(ctx, caller, user, ret, MethodGetGMRecord, user); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *DailyGM) GetUserStats(ctx context.Context, caller ContractCaller, user common.Address) (*UserStats, error) {
	ret := new(UserStats)
	if err := c.call(ctx, caller, user, ret, MethodGetUserStats, user); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *DailyGM) GetUserExtended(ctx context.Context, caller ContractCaller, user common.Address) (*UserExtended, error) {
	ret := new(UserExtended)
	if err := c.call(ctx, caller, user, ret, MethodGetUserExtended, user); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *DailyGM) CanSendGM(ctx context.Context, caller ContractCaller, user common.Address) (*Eligibility, error) {
	ret := new(Eligibility)
	if err := c.call(ctx, caller, user, ret, MethodCanSendGM, user); err != nil {
		return nil, err
	}
	return ret, nil
}

func isWriteMethod(method string) bool {
	return method == MethodSayGM || method == MethodSendGM
}

// SetWriteSelector sends method as the raw selector id instead of its ABI encoding.
func (c *DailyGM) SetWriteSelector(method string, id abiutils.MethodId) error {
	if !isWriteMethod(method) {
		return fmt.Errorf("'%s' is not a GM write method", method)
	}
	c.selectors[method] = id
	return nil
}

// PackWrite returns the call data of a zero-argument GM write method.
func (c *DailyGM) PackWrite(method string) ([]byte, error) {
	if !isWriteMethod(method) {
		return nil, fmt.Errorf("'%s' is not a GM write method", method)
	}
	if id, ok := c.selectors[method]; ok {
		return common.CopyBytes(id[:]), nil
	}
	return c.abi.Pack(method)
}
