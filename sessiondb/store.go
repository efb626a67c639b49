package sessiondb

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
)

// Store persists wallet sessions and GM history on top of a key-value database.
type Store struct {
	db  ethdb.Database
	mtx sync.Mutex // serializes read-modify-write of the GM counters
}

func NewStore(db ethdb.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Database() ethdb.Database {
	return s.db
}

func (s *Store) ReadSubAccount(universal common.Address) (common.Address, bool) {
	return ReadSubAccountLink(s.db, universal)
}

func (s *Store) WriteSubAccount(universal, sub common.Address) error {
	batch := s.db.NewBatch()
	WriteSubAccountLink(batch, universal, sub)
	return batch.Write()
}

// LastSession returns the session of the last connected universal account.
func (s *Store) LastSession() *Session {
	universal, ok := ReadLastSession(s.db)
	if !ok {
		return nil
	}
	return ReadSession(s.db, universal)
}

func (s *Store) SaveSession(session *Session) error {
	batch := s.db.NewBatch()
	WriteSession(batch, session)
	WriteLastSession(batch, session.Universal)
	if session.SubAccount != (common.Address{}) && session.SubAccount != session.Universal {
		WriteSubAccountLink(batch, session.Universal, session.SubAccount)
	}
	return batch.Write()
}

// DeleteSession forgets the session of universal. Sub account links are kept so
// a later connection resolves the same sub account.
func (s *Store) DeleteSession(universal common.Address) error {
	batch := s.db.NewBatch()
	DeleteSession(batch, universal)
	if last, ok := ReadLastSession(s.db); ok && last == universal {
		DeleteLastSession(batch)
	}
	return batch.Write()
}

// AppendGMTx appends entry to the history of its account and returns its index.
func (s *Store) AppendGMTx(entry *GMTx) (uint64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	index := ReadGMTxCount(s.db, entry.Account)
	batch := s.db.NewBatch()
	WriteGMTx(batch, entry.Account, index, entry)
	WriteGMTxCount(batch, entry.Account, index+1)
	return index, batch.Write()
}

func (s *Store) UpdateGMTx(index uint64, entry *GMTx) error {
	batch := s.db.NewBatch()
	WriteGMTx(batch, entry.Account, index, entry)
	return batch.Write()
}

// RecentGMTxs returns up to limit entries of the GM history of account, newest first.
func (s *Store) RecentGMTxs(account common.Address, limit int) []*GMTx {
	ret := make([]*GMTx, 0, limit)
	it := NewGMTxIterator(s.db, account)
	for len(ret) < limit && it.Next() {
		ret = append(ret, it.Value())
	}
	return ret
}

func (s *Store) Close() error {
	return s.db.Close()
}
