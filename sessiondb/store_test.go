package sessiondb

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	universal = common.HexToAddress("0x42A289CB8210005a2F5D0636f9aa90BF43D1593E")
	sub       = common.HexToAddress("0xAeabadae3Cc5f1d1A5De4903a195BF2796dF3481")
	factory   = common.HexToAddress("0x0BA5ED0c6AA8c49038F819E587E2633c4A9F428a")
)

func TestSessionRoundTrip(t *testing.T) {
	store := NewStore(rawdb.NewMemoryDatabase())
	assert.Nil(t, store.LastSession())

	session := &Session{
		Universal:   universal,
		SubAccount:  sub,
		Factory:     &factory,
		FactoryData: []byte{0xde, 0xad},
		ConnectedAt: 1717459200,
	}
	require.NoError(t, store.SaveSession(session))
	assert.Equal(t, session, store.LastSession())

	linked, ok := store.ReadSubAccount(universal)
	assert.True(t, ok)
	assert.Equal(t, sub, linked)

	require.NoError(t, store.DeleteSession(universal))
	assert.Nil(t, store.LastSession())
	_, ok = store.ReadSubAccount(universal)
	assert.True(t, ok, "links survive a disconnect")
}

func TestSessionWithoutFactory(t *testing.T) {
	store := NewStore(rawdb.NewMemoryDatabase())
	session := &Session{Universal: universal, SubAccount: universal}
	require.NoError(t, store.SaveSession(session))

	loaded := store.LastSession()
	require.NotNil(t, loaded)
	assert.Nil(t, loaded.Factory)
	assert.Equal(t, universal, loaded.SubAccount)

	_, ok := store.ReadSubAccount(universal)
	assert.False(t, ok)
}

func TestSubAccountLinks(t *testing.T) {
	store := NewStore(rawdb.NewMemoryDatabase())
	_, ok := store.ReadSubAccount(universal)
	assert.False(t, ok)

	require.NoError(t, store.WriteSubAccount(universal, sub))
	linked, ok := store.ReadSubAccount(universal)
	assert.True(t, ok)
	assert.Equal(t, sub, linked)
}

func TestGMTxHistory(t *testing.T) {
	store := NewStore(rawdb.NewMemoryDatabase())
	for i := 0; i < 5; i++ {
		index, err := store.AppendGMTx(&GMTx{Account: sub, Method: "sayGM", Ref: "0x01", Time: uint64(1000 + i)})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), index)
	}
	entry := &GMTx{Account: sub, Method: "sayGM", Ref: "0x01", TxHash: common.HexToHash("0xbeef"), Time: 1004, Status: GMTxConfirmed}
	require.NoError(t, store.UpdateGMTx(4, entry))

	recent := store.RecentGMTxs(sub, 3)
	require.Len(t, recent, 3)
	assert.Equal(t, entry, recent[0])
	assert.Equal(t, uint64(1003), recent[1].Time)
	assert.Equal(t, uint64(1002), recent[2].Time)
	assert.Equal(t, "confirmed", recent[0].Status.String())
	assert.Equal(t, "pending", recent[1].Status.String())

	assert.Empty(t, store.RecentGMTxs(universal, 3))
}

func TestInspectDatabase(t *testing.T) {
	store := NewStore(rawdb.NewMemoryDatabase())
	require.NoError(t, store.SaveSession(&Session{Universal: universal, SubAccount: sub}))
	_, err := store.AppendGMTx(&GMTx{Account: sub, Method: "sendGM"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, InspectDatabase(store.Database(), &out))
	assert.Contains(t, out.String(), "Sessions")
	assert.Contains(t, out.String(), "GM Transactions")
}
