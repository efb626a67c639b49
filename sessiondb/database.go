package sessiondb

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
)

const (
	DefaultCache   = 16
	DefaultHandles = 16
	namespace      = "dailygm/db/session/"
)

// Open opens the leveldb session database at path, an empty path gives an
// in-memory database.
func Open(path string, readonly bool) (ethdb.Database, error) {
	if path == "" {
		return rawdb.NewMemoryDatabase(), nil
	}
	db, err := rawdb.NewLevelDBDatabase(path, DefaultCache, DefaultHandles, namespace, readonly)
	if err != nil {
		return nil, fmt.Errorf("could not open session database at %s: %w", path, err)
	}
	return db, nil
}

type counter uint64

func (c counter) String() string {
	return fmt.Sprintf("%d", c)
}

// stat stores sizes and count for a parameter
type stat struct {
	size  common.StorageSize
	count counter
}

// Add size to the stat and increase the counter by 1
func (s *stat) Add(size common.StorageSize) {
	s.size += size
	s.count++
}

func (s *stat) Size() string {
	return s.size.String()
}

func (s *stat) Count() string {
	return s.count.String()
}

// InspectDatabase traverses the entire database and writes the size of all
// different categories of data to w.
func InspectDatabase(db ethdb.Database, w io.Writer) error {
	it := db.NewIterator(nil, nil)
	defer it.Release()

	var (
		count  int64
		start  = time.Now()
		logged = time.Now()

		sessions stat
		links    stat
		counters stat
		gmTxs    stat

		metadata    stat
		unaccounted stat

		total common.StorageSize
	)
	for it.Next() {
		var (
			key  = it.Key()
			size = common.StorageSize(len(key) + len(it.Value()))
		)
		total += size
		switch {
		case bytes.Equal(key, LastSessionKey):
			metadata.Add(size)
		case bytes.HasPrefix(key, SessionPrefix) && len(key) == (len(SessionPrefix)+common.AddressLength):
			sessions.Add(size)
		case bytes.HasPrefix(key, SubAccountLinkPrefix) && len(key) == (len(SubAccountLinkPrefix)+common.AddressLength):
			links.Add(size)
		case bytes.HasPrefix(key, GMTxCountPrefix) && len(key) == (len(GMTxCountPrefix)+common.AddressLength):
			counters.Add(size)
		case bytes.HasPrefix(key, GMTxPrefix) && len(key) == (len(GMTxPrefix)+common.AddressLength+8):
			gmTxs.Add(size)
		default:
			unaccounted.Add(size)
		}
		count++
		if count%1000 == 0 && time.Since(logged) > 8*time.Second {
			log.Info("Inspecting database", "count", count, "elapsed", common.PrettyDuration(time.Since(start)))
			logged = time.Now()
		}
	}
	if err := it.Error(); err != nil {
		return err
	}

	stats := [][]string{
		{"Key-Value store", "Sessions", sessions.Size(), sessions.Count()},
		{"Key-Value store", "Sub Account Links", links.Size(), links.Count()},
		{"Key-Value store", "GM Counters", counters.Size(), counters.Count()},
		{"Key-Value store", "GM Transactions", gmTxs.Size(), gmTxs.Count()},
		{"Key-Value store", "Metadata", metadata.Size(), metadata.Count()},
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Database", "Category", "Size", "Items"})
	table.SetFooter([]string{"", "Total", total.String(), " "})
	table.AppendBulk(stats)
	table.Render()

	if unaccounted.size > 0 {
		log.Error("Database contains unaccounted data", "size", unaccounted.size, "count", unaccounted.count)
	}
	return nil
}
