package main

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/verichains/dailygm/gm"
	"github.com/verichains/dailygm/sessiondb"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	linkColor = color.New(color.FgCyan)
)

func colorStatus(st *gm.State) string {
	switch st.Status {
	case gm.StatusSuccess, gm.StatusConnected, gm.StatusReady, gm.StatusSubmitted:
		return okColor.Sprint(st.Status)
	case gm.StatusReadyToConnect, gm.StatusAlreadySent, gm.StatusUnconfirmed, gm.StatusStatsFailed, gm.StatusCooldown:
		return warnColor.Sprint(st.Status)
	}
	if st.Phase == gm.PhaseSending || st.Loading {
		return st.Status
	}
	return errColor.Sprint(st.Status)
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printState renders the session state as a key/value table.
func printState(w io.Writer, st *gm.State, cfg *gm.Config, balance *big.Int) {
	table := newTable(w)
	table.Append([]string{"Status", colorStatus(st)})
	if !st.Connected {
		table.Render()
		return
	}
	table.Append([]string{"Universal account", st.Universal.Hex()})
	table.Append([]string{"Sub account", st.SubAccount.Hex()})
	if balance != nil {
		table.Append([]string{"Balance", gm.AmountString(balance, 18) + " ETH"})
	}
	if stats := st.Stats; stats != nil {
		table.Append([]string{"Current streak", fmt.Sprintf("%d", stats.CurrentStreak)})
		table.Append([]string{"Longest streak", fmt.Sprintf("%d", stats.LongestStreak)})
		table.Append([]string{"Total GMs", fmt.Sprintf("%d", stats.TotalGMs)})
		if cfg.Variant == gm.VariantExtended {
			table.Append([]string{"Points", fmt.Sprintf("%d (+%d bonus)", stats.Points, stats.BonusPoints)})
			table.Append([]string{"Rank", fmt.Sprintf("#%d", stats.Rank)})
		}
		if stats.LastGM > 0 {
			table.Append([]string{"Last GM", time.Unix(int64(stats.LastGM), 0).Format(time.RFC1123)})
		}
		if st.CanGM() {
			table.Append([]string{"Next GM", okColor.Sprint("now")})
		} else {
			table.Append([]string{"Next GM", gm.FormatCountdown(gm.NextGMIn(stats, time.Now()))})
		}
	}
	if st.TxHash != "" {
		ref := st.TxHash
		if url := gm.TxURL(cfg.ExplorerURL, ref); url != "" {
			ref = linkColor.Sprint(url)
		}
		table.Append([]string{"Last GM tx", ref})
	}
	table.Render()
}

func printHistory(w io.Writer, entries []*sessiondb.GMTx, cfg *gm.Config) {
	table := newTable(w)
	table.SetHeader([]string{"Time", "Method", "Status", "Ref"})
	for _, entry := range entries {
		ref := entry.Ref
		if entry.TxHash != (common.Hash{}) {
			ref = gm.TxURL(cfg.ExplorerURL, entry.TxHash.Hex())
		}
		status := entry.Status.String()
		switch entry.Status {
		case sessiondb.GMTxConfirmed:
			status = okColor.Sprint(status)
		case sessiondb.GMTxFailed:
			status = errColor.Sprint(status)
		}
		table.Append([]string{
			time.Unix(int64(entry.Time), 0).Format("2006-01-02 15:04:05"),
			entry.Method,
			status,
			ref,
		})
	}
	table.Render()
}
