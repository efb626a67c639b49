package gm

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FormatAddress shortens addr to its first 6 and last 4 characters, e.g. 0x42A2...593E.
func FormatAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// FormatCountdown renders the time left until the next GM.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, d/time.Second)
}

// NextGMIn returns the time left until stats allow another GM, preferring the
// contract reported countdown and falling back to a day after the last GM.
func NextGMIn(stats *Stats, now time.Time) time.Duration {
	if stats == nil || stats.CanGM {
		return 0
	}
	if stats.NextGMIn > 0 {
		return stats.NextGMIn
	}
	if stats.LastGM == 0 {
		return 0
	}
	next := time.Unix(int64(stats.LastGM), 0).Add(24 * time.Hour)
	if left := next.Sub(now); left > 0 {
		return left
	}
	return 0
}

func isTxHash(ref string) bool {
	data, err := hexutil.Decode(ref)
	return err == nil && len(data) == common.HashLength
}

// TxURL returns the explorer link of a transaction. Calls batch ids have no
// explorer page and give an empty string.
func TxURL(explorer string, ref string) string {
	if !isTxHash(ref) {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(explorer, "/"), ref)
}

func AddressURL(explorer string, addr common.Address) string {
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(explorer, "/"), addr.Hex())
}

// FundingLink returns the funding page for addr.
func FundingLink(base string, addr common.Address) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := u.Query()
	query.Set("address", addr.Hex())
	u.RawQuery = query.Encode()
	return u.String()
}

func AmountString(val *big.Int, decimals uint64) string {
	if val == nil {
		return "0"
	}
	expDec := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	bigFloatVal := new(big.Float).SetInt(val)
	return new(big.Float).Quo(bigFloatVal, expDec).Text('f', 6)
}
