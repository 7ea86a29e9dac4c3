package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchiver(t *testing.T) *BoltArchiver {
	t.Helper()

	a, err := OpenBoltArchiver(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func TestBoltArchiver_StoreAndLoad(t *testing.T) {
	a := newTestArchiver(t)

	rec := Record{
		TransactionID:    "00042",
		Kind:             "Payment",
		AmountMinor:      1234,
		Currency:         "978",
		Timestamp:        time.Date(2026, 8, 3, 15, 30, 0, 0, time.UTC),
		MaskedCardNumber: "************1234",
		PayerReceipt:     "payer text",
		PayeeReceipt:     "payee text",
		Bonus:            &BonusInfo{CustomerNumber: "CUST0001", MemberClass: "01"},
	}

	require.NoError(t, a.Store(context.Background(), rec))

	loaded, found, err := a.Load(context.Background(), rec.Key())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.TransactionID, loaded.TransactionID)
	assert.Equal(t, rec.AmountMinor, loaded.AmountMinor)
	assert.Equal(t, rec.Timestamp.Unix(), loaded.Timestamp.Unix())
	require.NotNil(t, loaded.Bonus)
	assert.Equal(t, "CUST0001", loaded.Bonus.CustomerNumber)
}

func TestBoltArchiver_LoadMissingReturnsFalse(t *testing.T) {
	a := newTestArchiver(t)

	_, found, err := a.Load(context.Background(), "missing-key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltArchiver_StoreOverwritesSameKey(t *testing.T) {
	a := newTestArchiver(t)
	ts := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, a.Store(context.Background(), Record{TransactionID: "00099", Timestamp: ts, AmountMinor: 100}))
	require.NoError(t, a.Store(context.Background(), Record{TransactionID: "00099", Timestamp: ts, AmountMinor: 200}))

	all, err := a.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(200), all[0].AmountMinor)
}

func TestBoltArchiver_ListReturnsAllStored(t *testing.T) {
	a := newTestArchiver(t)

	base := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"00001", "00002", "00003"} {
		rec := Record{
			TransactionID: id,
			Kind:          "Payment",
			AmountMinor:   int64(100 * (i + 1)),
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, a.Store(context.Background(), rec))
	}

	all, err := a.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
